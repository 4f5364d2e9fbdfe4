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

// Package keygen produces the key sequences fed to the hash tables. Each
// Distribution is meant to either flatter or stress one of the placement
// strategies.
package keygen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

const (
	// DefaultMaxKey bounds generated keys to [0, DefaultMaxKey).
	DefaultMaxKey = 1 << 30
	// DefaultTableSize is the table size ModuloSensitive keys are aimed at.
	DefaultTableSize = 4096

	clusterWidth = 100
)

// Distribution names a shape of key sequence.
type Distribution uint8

const (
	// Random keys are uniform over [0, MaxKey).
	Random Distribution = iota
	// Sequential keys are 0, 1, ..., count-1.
	Sequential
	// Clustered keys are uniform over a band of clusterWidth+1 values
	// starting at a random offset. Most of them are duplicates.
	Clustered
	// FibonacciSensitive keys are the Fibonacci sequence mod MaxKey, shuffled.
	FibonacciSensitive
	// ModuloSensitive keys are TableSize*i mod MaxKey: under modulo hashing
	// at TableSize they all share one home slot.
	ModuloSensitive
)

// Distributions lists every distribution.
var Distributions = []Distribution{Random, Sequential, Clustered, FibonacciSensitive, ModuloSensitive}

func (d Distribution) String() string {
	switch d {
	case Random:
		return "Random"
	case Sequential:
		return "Sequential"
	case Clustered:
		return "Clustered"
	case FibonacciSensitive:
		return "Fibonacci_Sensitive"
	case ModuloSensitive:
		return "Modulo_Sensitive"
	default:
		return fmt.Sprintf("Distribution(%d)", uint8(d))
	}
}

// ParseDistribution accepts a distribution name ignoring case, spaces,
// underscores and dashes, so "Fibonacci Sensitive" and "fibonacci_sensitive"
// are the same.
func ParseDistribution(s string) (Distribution, error) {
	norm := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(s))
	for _, d := range Distributions {
		if norm == strings.ReplaceAll(strings.ToLower(d.String()), "_", "") {
			return d, nil
		}
	}
	return 0, errors.Newf("unknown key distribution %q", s)
}

// Generator produces key sequences. The zero MaxKey and TableSize mean the
// defaults. Sequences are deterministic for a given Seed.
type Generator struct {
	MaxKey    uint32
	TableSize uint32
	Seed      uint64
}

func (g Generator) maxKey() uint64 {
	if g.MaxKey == 0 {
		return DefaultMaxKey
	}
	return uint64(g.MaxKey)
}

func (g Generator) tableSize() uint64 {
	if g.TableSize == 0 {
		return DefaultTableSize
	}
	return uint64(g.TableSize)
}

// rand returns a source private to distribution d so that generating one
// distribution does not shift the keys of another under the same seed.
func (g Generator) rand(d Distribution) *rand.Rand {
	return rand.New(rand.NewSource(int64(g.Seed ^ xxhash.Sum64String(d.String()))))
}

// Generate returns count keys drawn from distribution d.
func (g Generator) Generate(d Distribution, count int) ([]uint32, error) {
	if count < 0 {
		return nil, errors.Newf("negative key count %d", count)
	}
	maxKey := g.maxKey()
	rng := g.rand(d)
	keys := make([]uint32, count)

	switch d {
	case Random:
		for i := range keys {
			keys[i] = uint32(rng.Int63n(int64(maxKey)))
		}

	case Sequential:
		if uint64(count) > maxKey {
			return nil, errors.Newf("%d sequential keys exceed max key %d", count, maxKey)
		}
		for i := range keys {
			keys[i] = uint32(i)
		}

	case Clustered:
		if maxKey <= clusterWidth {
			return nil, errors.Newf("max key %d leaves no room for a cluster of %d", maxKey, clusterWidth)
		}
		start := rng.Int63n(int64(maxKey - clusterWidth))
		for i := range keys {
			keys[i] = uint32(start + rng.Int63n(clusterWidth+1))
		}

	case FibonacciSensitive:
		for i := range keys {
			switch i {
			case 0:
				keys[i] = 0
			case 1:
				keys[i] = 1
			default:
				keys[i] = uint32((uint64(keys[i-1]) + uint64(keys[i-2])) % maxKey)
			}
		}
		rng.Shuffle(len(keys), func(i, j int) {
			keys[i], keys[j] = keys[j], keys[i]
		})

	case ModuloSensitive:
		tableSize := g.tableSize()
		for i := range keys {
			keys[i] = uint32((tableSize * uint64(i)) % maxKey)
		}

	default:
		return nil, errors.Newf("unknown key distribution %d", uint8(d))
	}
	return keys, nil
}

// Summary describes a key sequence.
type Summary struct {
	Count    int
	Distinct uint64
	Min      uint32
	Max      uint32
}

// Summarize counts the distinct keys of keys and their range.
func Summarize(keys []uint32) Summary {
	bm := roaring.New()
	bm.AddMany(keys)
	s := Summary{
		Count:    len(keys),
		Distinct: bm.GetCardinality(),
	}
	if !bm.IsEmpty() {
		s.Min = bm.Minimum()
		s.Max = bm.Maximum()
	}
	return s
}
