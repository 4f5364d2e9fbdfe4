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

package fibhash

import (
	"fmt"
	"strings"
)

// fibMul is floor(2^32/φ) rounded to an odd value. Multiplying by it spreads
// the low bits of a key across the high bits of the 32-bit product.
const fibMul = 2654435769

// Strategy selects how a key is mapped to its home slot. It is fixed when a
// Table is constructed.
type Strategy uint8

const (
	// Fibonacci uses multiplicative hashing and keeps the top capacityLog2
	// bits of key*fibMul (mod 2^32).
	Fibonacci Strategy = iota
	// Modulo uses key mod capacity.
	Modulo
)

// Strategies lists every strategy in reporting order.
var Strategies = []Strategy{Fibonacci, Modulo}

func (s Strategy) String() string {
	switch s {
	case Fibonacci:
		return "Fibonacci"
	case Modulo:
		return "Modulo"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy returns the strategy named by s, ignoring case.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fibonacci", "fib":
		return Fibonacci, nil
	case "modulo", "mod":
		return Modulo, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// home returns the home slot for key in a table of the given capacity. The
// capacity must be a power of two and log2 the value returned by log2(capacity).
func (s Strategy) home(key, capacity, log2 uint32) uint32 {
	mask := capacity - 1
	switch s {
	case Fibonacci:
		// NB: the product wraps at 2^32 which is exactly the masking of a
		// 64-bit intermediate to its low 32 bits. The trailing mask only
		// matters for capacity 1 where log2 is clamped to 1.
		return ((key * fibMul) >> (32 - log2)) & mask
	case Modulo:
		return key & mask
	default:
		panic(fmt.Sprintf("unknown strategy %d", uint8(s)))
	}
}

// log2 returns the smallest n such that capacity>>n <= 1, with a minimum of 1.
// For a power of two this is its exponent.
func log2(capacity uint32) uint32 {
	n := uint32(0)
	for capacity>>n > 1 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}
