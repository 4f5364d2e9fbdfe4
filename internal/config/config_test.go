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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/fibhash"
	"github.com/cockroachdb/fibhash/internal/keygen"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "fibhash.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 4096, cfg.TableSize)
	require.EqualValues(t, 1<<30, cfg.MaxKey)

	d, err := cfg.KeyDistribution()
	require.NoError(t, err)
	require.Equal(t, keygen.Random, d)

	s, err := cfg.TableStrategies()
	require.NoError(t, err)
	require.Equal(t, fibhash.Strategies, s)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
table-size = 1024
num-keys = 500
distribution = "Modulo Sensitive"
seed = 7
auto-grow = true
strategies = ["modulo"]
output = "out.csv"

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 1024, cfg.TableSize)
	require.Equal(t, 500, cfg.NumKeys)
	require.EqualValues(t, 7, cfg.Seed)
	require.True(t, cfg.AutoGrow)
	require.Equal(t, "out.csv", cfg.Output)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	// Unset keys keep their defaults.
	require.EqualValues(t, keygen.DefaultMaxKey, cfg.MaxKey)
	require.Equal(t, 512, cfg.Log.MaxSize)

	d, err := cfg.KeyDistribution()
	require.NoError(t, err)
	require.Equal(t, keygen.ModuloSensitive, d)
	s, err := cfg.TableStrategies()
	require.NoError(t, err)
	require.Equal(t, []fibhash.Strategy{fibhash.Modulo}, s)

	g := cfg.Generator()
	require.Equal(t, keygen.Generator{MaxKey: keygen.DefaultMaxKey, TableSize: 1024, Seed: 7}, g)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "table-size = \"big\"\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "table-sise = 8\n"))
	require.ErrorContains(t, err, "table-sise")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"table-size", func(c *Config) { c.TableSize = 0 }},
		{"table-size-max", func(c *Config) { c.TableSize = int(int64(fibhash.MaxCapacity) + 1) }},
		{"num-keys", func(c *Config) { c.NumKeys = -1 }},
		{"max-key", func(c *Config) { c.MaxKey = 100 }},
		{"distribution", func(c *Config) { c.Distribution = "Gaussian" }},
		{"strategies", func(c *Config) { c.Strategies = []string{"cuckoo"} }},
		{"load", func(c *Config) { c.Load = true }},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
