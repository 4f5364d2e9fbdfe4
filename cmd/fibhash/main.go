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

// Command fibhash compares Fibonacci and modulo hashing on one key set and
// reports probe-length and collision statistics.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fibhash/internal/config"
	"github.com/cockroachdb/fibhash/internal/experiment"
	"github.com/cockroachdb/fibhash/internal/keygen"
	"github.com/cockroachdb/fibhash/internal/logutil"
	"github.com/cockroachdb/fibhash/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	input      string
	output     string
	load       bool
	seed       uint64
	tableSize  int
	autoGrow   bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "fibhash [flags] <num> <type>",
		Short: "Compare Fibonacci and modulo hashing under linear probing",
		Long: `Generates <num> keys of distribution <type> (Random, Sequential, Clustered,
Fibonacci_Sensitive, Modulo_Sensitive), then inserts, searches and removes them
in one table per hashing strategy and reports timings, collision rates and
probe lengths.`,
		Example:      "  fibhash -i test.txt -o test.csv 1000 Clustered",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && f.configPath == "" {
				return cmd.Help()
			}
			cfg, err := buildConfig(cmd, &f, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "TOML configuration file")
	fs.StringVarP(&f.input, "input", "i", "", "key-set file the generated keys are stored in")
	fs.StringVarP(&f.output, "output", "o", "", "CSV file the results are written to")
	fs.BoolVar(&f.load, "load", false, "read the keys from the --input file instead of generating them")
	fs.Uint64Var(&f.seed, "seed", 0, "key generator seed (0 picks one)")
	fs.IntVar(&f.tableSize, "table-size", keygen.DefaultTableSize, "table capacity, rounded up to a power of two")
	fs.BoolVar(&f.autoGrow, "auto-grow", false, "double the tables before their load factor exceeds 1/2")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// buildConfig layers the configuration file, the flags set on the command
// line and the positional arguments, in that order.
func buildConfig(cmd *cobra.Command, f *flags, args []string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("input") {
		cfg.Input = f.input
	}
	if fs.Changed("output") {
		cfg.Output = f.output
	}
	if fs.Changed("load") {
		cfg.Load = f.load
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("table-size") {
		cfg.TableSize = f.tableSize
	}
	if fs.Changed("auto-grow") {
		cfg.AutoGrow = f.autoGrow
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}

	// The key count and the distribution may come in either order.
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			cfg.NumKeys = n
			continue
		}
		if _, err := keygen.ParseDistribution(arg); err != nil {
			return config.Config{}, errors.Newf("argument %q is neither a key count nor a key type", arg)
		}
		cfg.Distribution = arg
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	logger, err := logutil.SetupLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dist, err := cfg.KeyDistribution()
	if err != nil {
		return err
	}
	strategies, err := cfg.TableStrategies()
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	var keys []uint32
	if cfg.Load {
		if keys, err = keygen.ReadFile(cfg.Input); err != nil {
			return err
		}
		logger.Info("keys loaded", zap.String("file", cfg.Input), zap.Int("count", len(keys)))
	} else {
		if keys, err = cfg.Generator().Generate(dist, cfg.NumKeys); err != nil {
			return err
		}
		logger.Info("keys generated",
			zap.Stringer("distribution", dist),
			zap.Int("count", len(keys)),
			zap.Uint64("seed", cfg.Seed))
		if cfg.Input != "" {
			if err := keygen.WriteFile(cfg.Input, keys); err != nil {
				return err
			}
			logger.Info("keys stored", zap.String("file", cfg.Input))
		}
	}

	results, err := experiment.Run(ctx, keys, experiment.Options{
		TableSize:  cfg.TableSize,
		AutoGrow:   cfg.AutoGrow,
		Strategies: strategies,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("experiment failed", zap.Error(err))
		return err
	}

	if err := report.Print(stdout, dist, keygen.Summarize(keys), results); err != nil {
		return err
	}
	if cfg.Output != "" {
		if err := writeReport(cfg.Output, dist, results); err != nil {
			return err
		}
		logger.Info("report written", zap.String("file", cfg.Output))
	}
	return nil
}

func writeReport(path string, dist keygen.Distribution, results []experiment.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating report %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "closing report %s", path)
		}
	}()
	if err := report.WriteCSV(f, dist, results); err != nil {
		return errors.Wrapf(err, "writing report %s", path)
	}
	return nil
}
