// Copyright 2015-2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package storeconfig provides a flag.Value-style store backend
// selector, the same shape as the teacher's backend.Backend, plus
// loading a YAML configuration file that can set bookmarks and the
// base URL.
package storeconfig

import (
	"errors"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/diffeo-labs/atomic-data-go/store"
	"github.com/diffeo-labs/atomic-data-go/store/boltstore"
	"github.com/diffeo-labs/atomic-data-go/store/memstore"
)

// Backend describes which store.Store implementation to construct and
// where its data lives. It implements flag.Value so it can be wired
// directly with flag.Var(&backend, "backend", ...).
type Backend struct {
	Implementation string // "memory" or "bolt"
	Path           string // bolt database file path; unused for memory
}

// Store constructs the store.Store this Backend describes. Calling it
// more than once for "memory" creates independent, empty stores;
// calling it more than once for "bolt" opens the same file twice.
func (b *Backend) Store() (store.Store, error) {
	switch b.Implementation {
	case "", "memory":
		return memstore.New(), nil
	case "bolt":
		if b.Path == "" {
			return nil, errors.New("bolt backend requires a database path")
		}
		return boltstore.Open(b.Path)
	default:
		return nil, errors.New("unknown store backend " + b.Implementation)
	}
}

// String renders a Backend description as "impl:path", matching
// backend.Backend's flag.Value rendering.
func (b *Backend) String() string {
	if b.Path == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Path
}

// Set parses "impl" or "impl:path" into b. Part of flag.Value.
func (b *Backend) Set(param string) error {
	parts := strings.SplitN(param, ":", 2)
	switch len(parts) {
	case 1:
		b.Implementation = parts[0]
		b.Path = ""
	case 2:
		b.Implementation = parts[0]
		b.Path = parts[1]
	default:
		return errors.New("must specify a backend type")
	}
	return nil
}

// Config is the shape of the daemon's optional YAML configuration
// file: a base URL for content-addressed subjects and a set of
// bookmark shortname -> URL mappings.
type Config struct {
	BaseURL   string            `yaml:"base_url"`
	Bookmarks map[string]string `yaml:"bookmarks"`
}

// Load reads and parses a YAML configuration file, mirroring
// cmd/coordinated's loadConfigYaml.
func Load(filename string) (*Config, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
