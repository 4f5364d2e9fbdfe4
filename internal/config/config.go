// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the settings of an experiment run, loadable from a
// TOML file.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fibhash"
	"github.com/cockroachdb/fibhash/internal/keygen"
	"github.com/cockroachdb/fibhash/internal/logutil"
)

// Config is the configuration of one experiment run.
type Config struct {
	TableSize    int    `toml:"table-size"`
	MaxKey       uint32 `toml:"max-key"`
	NumKeys      int    `toml:"num-keys"`
	Distribution string `toml:"distribution"`
	// Seed of the key generator. Zero picks a seed at startup.
	Seed       uint64   `toml:"seed"`
	AutoGrow   bool     `toml:"auto-grow"`
	Strategies []string `toml:"strategies"`
	// Input is the key-set file the generated keys are written to. When Load
	// is set the keys are read from it instead.
	Input  string `toml:"input"`
	Load   bool   `toml:"load"`
	Output string `toml:"output"`

	Log logutil.LogConfig `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TableSize:    keygen.DefaultTableSize,
		MaxKey:       keygen.DefaultMaxKey,
		Distribution: keygen.Random.String(),
		Strategies:   []string{fibhash.Fibonacci.String(), fibhash.Modulo.String()},
		Log:          logutil.DefaultLogConfig(),
	}
}

// Load reads the TOML file at path over the defaults. Unknown keys are an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decoding config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.Newf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks the configuration for values the run cannot use.
func (c *Config) Validate() error {
	if c.TableSize < 1 {
		return errors.Newf("table-size must be at least 1, got %d", c.TableSize)
	}
	if int64(c.TableSize) > fibhash.MaxCapacity {
		return errors.Newf("table-size must not exceed %d, got %d", int64(fibhash.MaxCapacity), c.TableSize)
	}
	if c.MaxKey != 0 && c.MaxKey <= 100 {
		return errors.Newf("max-key must exceed 100, got %d", c.MaxKey)
	}
	if c.NumKeys < 0 {
		return errors.Newf("num-keys must not be negative, got %d", c.NumKeys)
	}
	if _, err := c.KeyDistribution(); err != nil {
		return err
	}
	if _, err := c.TableStrategies(); err != nil {
		return err
	}
	if c.Load && c.Input == "" {
		return errors.New("load requires an input key file")
	}
	return nil
}

// KeyDistribution parses Distribution.
func (c *Config) KeyDistribution() (keygen.Distribution, error) {
	return keygen.ParseDistribution(c.Distribution)
}

// TableStrategies parses Strategies. An empty list means every strategy.
func (c *Config) TableStrategies() ([]fibhash.Strategy, error) {
	if len(c.Strategies) == 0 {
		return fibhash.Strategies, nil
	}
	strategies := make([]fibhash.Strategy, 0, len(c.Strategies))
	for _, name := range c.Strategies {
		s, err := fibhash.ParseStrategy(name)
		if err != nil {
			return nil, errors.Wrap(err, "strategies")
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// Generator returns the key generator described by the configuration.
func (c *Config) Generator() keygen.Generator {
	return keygen.Generator{
		MaxKey:    c.MaxKey,
		TableSize: uint32(c.TableSize),
		Seed:      c.Seed,
	}
}
