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

// Package experiment drives the hash tables through an insert, a search and a
// remove phase over one key sequence and collects timings and statistics for
// each placement strategy.
package experiment

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fibhash"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// DefaultTableSize is the capacity tables are built with when Options leaves
// it unset.
const DefaultTableSize = 4096

var now = time.Now

// Options configures Run.
type Options struct {
	TableSize int
	// AutoGrow builds the tables with fibhash.WithAutoGrow. The statistics of
	// a grown table only cover operations since its last growth.
	AutoGrow bool
	// Strategies defaults to fibhash.Strategies.
	Strategies []fibhash.Strategy
	// Concurrency bounds the number of tables exercised at once. It defaults
	// to the number of strategies.
	Concurrency int
	Logger      *zap.Logger
}

// Result is the outcome of running one strategy.
type Result struct {
	Strategy fibhash.Strategy

	InsertTime time.Duration
	SearchTime time.Duration
	RemoveTime time.Duration

	// Successful operations per phase.
	Inserted int
	Found    int
	Removed  int

	Capacity int
	// Len is the number of live keys left after the remove phase.
	Len   int
	Stats fibhash.Stats
}

// Run exercises a fresh table per strategy with keys: every key is inserted,
// then searched, then removed. Tables run concurrently in a worker pool, but
// each table is only ever touched by the goroutine that built it. Results are
// returned in strategy order. A panic raised by a table is re-raised by Run
// once every strategy has finished.
func Run(ctx context.Context, keys []uint32, opts Options) ([]Result, error) {
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = fibhash.Strategies
	}
	size := opts.Concurrency
	if size <= 0 {
		size = len(strategies)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, errors.Wrap(err, "creating worker pool")
	}
	defer pool.Release()

	results := make([]Result, len(strategies))
	errs := make([]error, len(strategies))
	// The pool recovers panics in its workers, so a table fault is carried
	// back here and raised again on the caller's goroutine.
	panics := make([]interface{}, len(strategies))
	var wg sync.WaitGroup
	for i := range strategies {
		i := i
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					panics[i] = p
				}
			}()
			results[i], errs[i] = runStrategy(ctx, keys, strategies[i], opts, logger)
		})
		if err != nil {
			wg.Done()
			errs[i] = errors.Wrapf(err, "submitting %s", strategies[i])
		}
	}
	wg.Wait()

	for i, p := range panics {
		if p != nil {
			logger.Error("strategy aborted",
				zap.Stringer("strategy", strategies[i]),
				zap.Any("panic", p))
			panic(p)
		}
	}

	var combined error
	for _, err := range errs {
		combined = errors.CombineErrors(combined, err)
	}
	if combined != nil {
		return nil, combined
	}
	return results, nil
}

func runStrategy(
	ctx context.Context, keys []uint32, s fibhash.Strategy, opts Options, logger *zap.Logger,
) (Result, error) {
	tableSize := opts.TableSize
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	var tableOpts []fibhash.Option
	if opts.AutoGrow {
		tableOpts = append(tableOpts, fibhash.WithAutoGrow())
	}
	t := fibhash.New(tableSize, s, tableOpts...)
	defer t.Close()

	logger = logger.With(zap.Stringer("strategy", s))
	logger.Debug("table created",
		zap.Int("capacity", t.Capacity()),
		zap.Uint32("capacity-log2", t.CapacityLog2()),
		zap.Int("keys", len(keys)))

	phase := func(op fibhash.Op, fn func(key uint32) bool) (time.Duration, int, error) {
		if err := ctx.Err(); err != nil {
			return 0, 0, errors.Wrapf(err, "%s %s phase", s, op)
		}
		var n int
		start := now()
		for _, k := range keys {
			if fn(k) {
				n++
			}
		}
		elapsed := now().Sub(start)
		logger.Debug("phase done",
			zap.Stringer("op", op),
			zap.Duration("elapsed", elapsed),
			zap.Int("ok", n),
			zap.Int("len", t.Len()))
		return elapsed, n, nil
	}

	var r Result
	var err error
	r.Strategy = s
	if r.InsertTime, r.Inserted, err = phase(fibhash.OpInsert, func(k uint32) bool {
		return t.Insert(k).OK()
	}); err != nil {
		return Result{}, err
	}
	if r.SearchTime, r.Found, err = phase(fibhash.OpSearch, t.Search); err != nil {
		return Result{}, err
	}
	if r.RemoveTime, r.Removed, err = phase(fibhash.OpRemove, func(k uint32) bool {
		return t.Remove(k).OK()
	}); err != nil {
		return Result{}, err
	}
	r.Capacity = t.Capacity()
	r.Len = t.Len()
	r.Stats = t.Stats()

	logger.Info("strategy done",
		zap.Int("inserted", r.Inserted),
		zap.Int("found", r.Found),
		zap.Int("removed", r.Removed),
		zap.Float64("collision-rate", r.Stats.CollisionRate()),
		zap.Stringer("stats", r.Stats))
	return r, nil
}
