package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
)

type config struct {
	Listen string `yaml:"listen"`
	Store  struct {
		Type       string `yaml:"type"`
		Filesystem struct {
			Path string `yaml:"path"`
		} `yaml:"filesystem"`
	} `yaml:"store"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		ServiceName string `yaml:"serviceName"`
	} `yaml:"tracing"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

// options are the command line flags. Empty values leave the config
// untouched.
type options struct {
	Listen   string `short:"l" long:"listen" description:"address to listen on (default :5000)"`
	Config   string `short:"c" long:"config" description:"YAML config file"`
	Storage  string `short:"s" long:"storage" description:"storage root directory (default Storage)"`
	Store    string `long:"store" description:"store type: filesystem or memory"`
	LogLevel string `long:"log-level" description:"log level"`
	Tracing  bool   `long:"tracing" description:"export traces over OTLP"`
}

func defaultConfig() config {
	var c config
	c.Listen = ":5000"
	c.Store.Type = "filesystem"
	c.Store.Filesystem.Path = "Storage"
	c.Log.Level = "info"
	c.Tracing.ServiceName = "filestore"
	c.ShutdownTimeout = "10s"
	return c
}

func loadConfig(opts *options) (config, error) {
	c := defaultConfig()

	if opts.Config != "" {
		cf, err := os.Open(opts.Config)
		if err != nil {
			return c, errors.Wrap(err, "open config")
		}
		defer cf.Close()

		if err := yaml.NewDecoder(cf).Decode(&c); err != nil {
			return c, errors.Wrapf(err, "decode config %s", opts.Config)
		}
	}

	if opts.Listen != "" {
		c.Listen = opts.Listen
	}
	if opts.Storage != "" {
		c.Store.Filesystem.Path = opts.Storage
	}
	if opts.Store != "" {
		c.Store.Type = opts.Store
	}
	if opts.LogLevel != "" {
		c.Log.Level = opts.LogLevel
	}
	if opts.Tracing {
		c.Tracing.Enabled = true
	}

	return c, c.validate()
}

func (c *config) validate() error {
	if len(c.Listen) == 0 {
		return errors.New("listen missing")
	}

	switch c.Store.Type {
	case "":
		return errors.New("store.type missing")
	case "filesystem":
		if len(c.Store.Filesystem.Path) == 0 {
			return errors.New("store.filesystem.path missing")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store type: %s", c.Store.Type)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}

	if _, err := c.shutdownTimeout(); err != nil {
		return errors.Wrap(err, "shutdownTimeout")
	}
	return nil
}

func (c *config) shutdownTimeout() (time.Duration, error) {
	return time.ParseDuration(c.ShutdownTimeout)
}

// openStore builds the filesystem adapter for the configured store type and
// makes sure its root exists.
func (c *config) openStore() (*filesystem, error) {
	switch c.Store.Type {
	case "filesystem":
		root := c.Store.Filesystem.Path
		if !filepath.IsAbs(root) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			root = filepath.Join(wd, root)
		}
		return newFilesystem(afero.NewOsFs(), root)
	case "memory":
		return newFilesystem(afero.NewMemMapFs(), string(filepath.Separator)+"Storage")
	default:
		return nil, fmt.Errorf("invalid store type: %s", c.Store.Type)
	}
}
