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

import "fmt"

// Op identifies the kind of table operation a statistic refers to.
type Op uint8

const (
	OpInsert Op = iota
	OpSearch
	OpRemove
	numOps
)

func (op Op) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpSearch:
		return "search"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

type opStats struct {
	count    uint64
	probes   uint64
	maxProbe uint32
}

// Stats accumulates probe-length and collision counters for a Table. Every
// operation is counted, including failed ones. An insert rejected because the
// table is full is counted but contributes no probe length.
//
// Derived values divide by operation counts; they are 0 when nothing has been
// counted yet.
type Stats struct {
	ops        [numOps]opStats
	collisions uint64
}

// record counts one operation of kind op that probed n slots past its home
// slot.
func (s *Stats) record(op Op, n uint32) {
	o := &s.ops[op]
	o.probes += uint64(n)
	if n > o.maxProbe {
		o.maxProbe = n
	}
	if op == OpInsert && n > 0 {
		s.collisions++
	}
}

// attempt counts an operation before it probes.
func (s *Stats) attempt(op Op) {
	s.ops[op].count++
}

// Count returns the number of operations of kind op.
func (s Stats) Count(op Op) uint64 {
	return s.ops[op].count
}

// TotalProbeLength returns the cumulative probe length of operations of kind op.
func (s Stats) TotalProbeLength(op Op) uint64 {
	return s.ops[op].probes
}

// MaxProbeLength returns the longest probe of an operation of kind op.
func (s Stats) MaxProbeLength(op Op) uint32 {
	return s.ops[op].maxProbe
}

// AverageProbeLength returns TotalProbeLength(op)/Count(op).
func (s Stats) AverageProbeLength(op Op) float64 {
	o := s.ops[op]
	if o.count == 0 {
		return 0
	}
	return float64(o.probes) / float64(o.count)
}

// Collisions returns the number of inserts that probed past their home slot.
func (s Stats) Collisions() uint64 {
	return s.collisions
}

// CollisionRate returns Collisions()/Count(OpInsert).
func (s Stats) CollisionRate() float64 {
	n := s.ops[OpInsert].count
	if n == 0 {
		return 0
	}
	return float64(s.collisions) / float64(n)
}

func (s Stats) String() string {
	return fmt.Sprintf("inserts=%d searches=%d removes=%d collisions=%d max-probe=%d/%d/%d",
		s.ops[OpInsert].count, s.ops[OpSearch].count, s.ops[OpRemove].count, s.collisions,
		s.ops[OpInsert].maxProbe, s.ops[OpSearch].maxProbe, s.ops[OpRemove].maxProbe)
}
