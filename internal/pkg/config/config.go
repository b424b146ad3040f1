// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package config

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/elastic/go-ucfg"
)

// DefaultOptions defaults options used to read the configuration. Variable expansion is
// left off on purpose: commit messages routinely contain "${...}".
var DefaultOptions = []ucfg.Option{
	ucfg.PathSep("."),
}

// Config wraps the raw ucfg configuration.
type Config struct {
	access *ucfg.Config
}

// New creates a new empty config.
func New() *Config {
	return &Config{access: ucfg.New()}
}

// NewConfigFrom takes a interface and read the configuration like it was YAML.
func NewConfigFrom(from interface{}, opts ...ucfg.Option) (*Config, error) {
	if len(opts) == 0 {
		opts = DefaultOptions
	}

	var data map[string]interface{}
	switch in := from.(type) {
	case []byte:
		if err := yaml.Unmarshal(in, &data); err != nil {
			return nil, err
		}
	case string:
		if err := yaml.Unmarshal([]byte(in), &data); err != nil {
			return nil, err
		}
	case io.Reader:
		if closer, ok := from.(io.Closer); ok {
			defer closer.Close()
		}
		fData, err := io.ReadAll(in)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(fData, &data); err != nil {
			return nil, err
		}
	case map[string]interface{}:
		// don't modify the incoming contents
		data = maps.Clone(in)
	default:
		c, err := ucfg.NewFrom(from, opts...)
		return &Config{access: c}, err
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	c, err := ucfg.NewFrom(data, opts...)
	if err != nil {
		return nil, err
	}
	return &Config{access: c}, nil
}

// MustNewConfigFrom try to create a configuration based on the type passed as arguments and panic
// on failures.
func MustNewConfigFrom(from interface{}) *Config {
	c, err := NewConfigFrom(from)
	if err != nil {
		panic(fmt.Sprintf("could not read configuration %+v", err))
	}
	return c
}

// UnpackTo unpacks this config into to.
func (c *Config) UnpackTo(to interface{}) error {
	return c.access.Unpack(to, DefaultOptions...)
}

// Merge merges from on top of the configuration.
func (c *Config) Merge(from interface{}) error {
	if cfg, ok := from.(*Config); ok {
		return c.access.Merge(cfg.access, DefaultOptions...)
	}
	return c.access.Merge(from, DefaultOptions...)
}

// HasField reports whether name is set.
func (c *Config) HasField(name string) bool {
	return c.access.HasField(name)
}

// LoadFile take a path and load the file and return a new configuration.
func LoadFile(path string) (*Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewConfigFrom(fp)
}

// FromEnviron builds a configuration from os.Environ style "KEY=value" entries.
// Names containing the path separator cannot be addressed and are dropped.
func FromEnviron(environ []string) (*Config, error) {
	data := make(map[string]interface{}, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || strings.Contains(name, ".") {
			continue
		}
		data[name] = value
	}
	return NewConfigFrom(data)
}
