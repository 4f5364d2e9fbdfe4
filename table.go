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

// Package fibhash is an open-addressing hash set of uint32 keys used to
// compare Fibonacci (multiplicative) hashing against modulo hashing. Every
// operation is instrumented: the table keeps probe-length and collision
// statistics for inserts, searches and removes.
//
// # Layout
//
// A Table is a power-of-two array of slots. A slot is in one of three states:
//
//	   empty: occupied=false deleted=false
//	    live: occupied=true  deleted=false
//	tombstone: occupied=true  deleted=true
//
// The key of a slot is hashed to a home index by the table's Strategy and
// collisions are resolved by linear probing: slot (home+i)&(capacity-1) for
// i = 0, 1, ... The probe length of an operation is the i at which it
// resolved, so 0 means the home slot resolved it.
//
// # Deletion
//
// Removing a key leaves a tombstone. Tombstones keep later keys of the same
// probe chain reachable: a search only stops at an empty slot, and a
// tombstone is not empty. Inserts reuse the first tombstone seen on the probe
// walk, but still walk until an empty slot to rule out a duplicate further
// along the chain. Tombstones are dropped when the table grows.
//
// # Growth
//
// Capacity is fixed at construction unless the table is grown explicitly with
// Grow, or constructed with WithAutoGrow which grows before an insert would
// take the load factor above 1/2. Growth re-inserts every live key into a
// fresh array of twice the size and resets the statistics.
package fibhash

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	debug = false

	// The auto-grow load factor is maxLoadNum/maxLoadDen.
	maxLoadNum = 1
	maxLoadDen = 2
)

// MaxCapacity is the largest slot count a Table supports.
const MaxCapacity = 1 << 31

// Slot is a cell of the table's slot array.
type Slot struct {
	key      uint32
	occupied bool
	// deleted marks a tombstone. A tombstone is also occupied.
	deleted bool
}

func (s *Slot) empty() bool {
	return !s.occupied
}

func (s *Slot) live() bool {
	return s.occupied && !s.deleted
}

func (s *Slot) tombstone() bool {
	return s.deleted
}

// InsertResult is the outcome of Table.Insert.
type InsertResult uint8

const (
	Inserted InsertResult = iota
	DuplicateKey
	TableFull
)

// OK returns true iff the key was inserted.
func (r InsertResult) OK() bool {
	return r == Inserted
}

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case DuplicateKey:
		return "duplicate-key"
	case TableFull:
		return "table-full"
	default:
		return fmt.Sprintf("InsertResult(%d)", uint8(r))
	}
}

// RemoveResult is the outcome of Table.Remove.
type RemoveResult uint8

const (
	Removed RemoveResult = iota
	NotFound
	AlreadyDeleted
)

// OK returns true iff a live key was removed.
func (r RemoveResult) OK() bool {
	return r == Removed
}

func (r RemoveResult) String() string {
	switch r {
	case Removed:
		return "removed"
	case NotFound:
		return "not-found"
	case AlreadyDeleted:
		return "already-deleted"
	default:
		return fmt.Sprintf("RemoveResult(%d)", uint8(r))
	}
}

// Table is a linear-probing hash set of uint32 keys with per-operation
// statistics.
//
// A Table is NOT goroutine-safe. Concurrent use requires one lock around each
// operation, covering both the slots and the statistics.
type Table struct {
	slots []Slot
	// The number of slots, always a power of two. capacity-1 is used as a mask
	// to compute i%capacity.
	capacity uint32
	// capacityLog2 is the number of high bits of the Fibonacci product that
	// form the home index.
	capacityLog2 uint32
	// The number of live slots. Tombstones are not counted.
	used     uint32
	strategy Strategy
	stats    Stats

	allocator Allocator
	autoGrow  bool
}

// New constructs a Table with room for at least capacity keys that places
// keys using strategy. The capacity is clamped to at least 1 and rounded up to
// a power of two.
func New(capacity int, strategy Strategy, options ...Option) *Table {
	if strategy != Fibonacci && strategy != Modulo {
		panic(fmt.Sprintf("unknown strategy %d", uint8(strategy)))
	}
	t := &Table{
		strategy:  strategy,
		allocator: defaultAllocator{},
	}
	for _, op := range options {
		op.apply(t)
	}

	if capacity < 1 {
		capacity = 1
	}
	if uint64(capacity) > MaxCapacity {
		panic(fmt.Sprintf("capacity %d exceeds maximum %d", capacity, uint64(MaxCapacity)))
	}
	t.alloc(uint32(1) << bits.Len32(uint32(capacity-1)))
	t.checkInvariants()
	return t
}

// Close releases the slot array back to the configured allocator. It is
// unnecessary to close a table using the default allocator. It is invalid to
// use a Table after it has been closed, though Close itself is idempotent.
func (t *Table) Close() {
	if t.slots != nil {
		t.allocator.FreeSlots(t.slots)
		t.slots = nil
	}
	t.capacity = 0
	t.used = 0
}

// Insert adds key to the table. It fails with DuplicateKey if the key is
// already live and with TableFull if every slot holds a live key.
func (t *Table) Insert(key uint32) InsertResult {
	if t.autoGrow && uint64(t.used+1)*maxLoadDen > uint64(t.capacity)*maxLoadNum {
		t.Grow()
	}

	t.stats.attempt(OpInsert)
	if t.used >= t.capacity {
		if debug {
			fmt.Printf("insert(%d): full used=%d\n", key, t.used)
		}
		return TableFull
	}

	h := t.strategy.home(key, t.capacity, t.capacityLog2)
	mask := t.capacity - 1
	if debug {
		fmt.Printf("insert(%d): home=%d\n", key, h)
	}

	var tomb uint32
	var sawTomb bool
	var i uint32
	for ; i < t.capacity; i++ {
		s := &t.slots[(h+i)&mask]
		if s.empty() {
			break
		}
		if s.tombstone() {
			if !sawTomb {
				tomb, sawTomb = (h+i)&mask, true
			}
			continue
		}
		if s.key == key {
			if debug {
				fmt.Printf("insert(%d): duplicate index=%d probe=%d\n", key, (h+i)&mask, i)
			}
			t.stats.record(OpInsert, i)
			return DuplicateKey
		}
	}

	var target uint32
	switch {
	case sawTomb:
		// The earliest tombstone on the walk.
		target = tomb
	case i < t.capacity:
		target = (h + i) & mask
	default:
		panic(fmt.Sprintf("no free slot for %d with used=%d < capacity=%d\n%s",
			key, t.used, t.capacity, t.debugString()))
	}
	if i == t.capacity {
		// The whole cycle was walked. The last examined slot is capacity-1
		// slots past home.
		i--
	}

	s := &t.slots[target]
	s.key = key
	s.occupied = true
	s.deleted = false
	t.used++
	t.stats.record(OpInsert, i)

	if debug {
		fmt.Printf("insert(%d): index=%d probe=%d used=%d\n", key, target, i, t.used)
	}
	t.checkInvariants()
	return Inserted
}

// Search returns true iff key is live in the table.
func (t *Table) Search(key uint32) bool {
	t.stats.attempt(OpSearch)
	i, s := t.find(key)
	t.stats.record(OpSearch, i)
	if debug {
		fmt.Printf("search(%d): probe=%d found=%t\n", key, i, s != nil && s.live())
	}
	return s != nil && s.live()
}

// Remove turns the live slot holding key into a tombstone.
func (t *Table) Remove(key uint32) RemoveResult {
	t.stats.attempt(OpRemove)
	i, s := t.find(key)
	t.stats.record(OpRemove, i)

	switch {
	case s == nil:
		return NotFound
	case s.tombstone():
		return AlreadyDeleted
	}
	s.deleted = true
	t.used--

	if debug {
		fmt.Printf("remove(%d): probe=%d used=%d\n", key, i, t.used)
	}
	t.checkInvariants()
	return Removed
}

// Grow doubles the capacity of the table, re-inserting every live key into a
// new slot array and dropping all tombstones. The statistics are reset to
// zero: they describe operations against the table at its current capacity.
func (t *Table) Grow() {
	if t.capacity >= MaxCapacity {
		panic(fmt.Sprintf("cannot grow beyond capacity %d", t.capacity))
	}
	t.resize(2 * t.capacity)
}

// All calls yield sequentially for each live key in slot order. If yield
// returns false, iteration stops.
func (t *Table) All(yield func(key uint32) bool) {
	for i := range t.slots {
		if s := &t.slots[i]; s.live() {
			if !yield(s.key) {
				return
			}
		}
	}
}

// Len returns the number of live keys.
func (t *Table) Len() int {
	return int(t.used)
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return int(t.capacity)
}

// CapacityLog2 returns the number of hash bits used by Fibonacci placement.
func (t *Table) CapacityLog2() uint32 {
	return t.capacityLog2
}

// Strategy returns the placement strategy chosen at construction.
func (t *Table) Strategy() Strategy {
	return t.strategy
}

// LoadFactor returns Len()/Capacity().
func (t *Table) LoadFactor() float64 {
	if t.capacity == 0 {
		return 0
	}
	return float64(t.used) / float64(t.capacity)
}

// Stats returns a snapshot of the accumulated statistics.
func (t *Table) Stats() Stats {
	return t.stats
}

// find walks the probe sequence of key and returns the number of slots it
// walked past home along with the slot holding key, which may be a
// tombstone. The slot is nil if an empty slot or the end of the cycle was
// reached first. find does not touch the statistics.
func (t *Table) find(key uint32) (uint32, *Slot) {
	h := t.strategy.home(key, t.capacity, t.capacityLog2)
	mask := t.capacity - 1
	for i := uint32(0); i < t.capacity; i++ {
		s := &t.slots[(h+i)&mask]
		if s.empty() {
			return i, nil
		}
		if s.key == key {
			return i, s
		}
	}
	return t.capacity - 1, nil
}

func (t *Table) alloc(capacity uint32) {
	t.slots = t.allocator.AllocSlots(int(capacity))
	t.capacity = capacity
	t.capacityLog2 = log2(capacity)
	t.used = 0
}

// resize allocates a slot array of newCapacity and uncheckedInserts each live
// key of the old array into it (we know no insertion here will meet a
// duplicate), and discards the old array.
func (t *Table) resize(newCapacity uint32) {
	oldSlots, oldCapacity := t.slots, t.capacity
	t.alloc(newCapacity)

	if debug {
		fmt.Printf("resize: capacity=%d->%d\n", oldCapacity, newCapacity)
	}

	for i := range oldSlots {
		s := &oldSlots[i]
		if !s.live() {
			continue
		}
		if !t.uncheckedInsert(s.key) {
			panic(fmt.Sprintf("resize: no slot for key %d at capacity %d (old capacity %d)\n%s",
				s.key, t.capacity, oldCapacity, t.debugString()))
		}
	}

	if oldSlots != nil {
		t.allocator.FreeSlots(oldSlots)
	}
	t.stats = Stats{}
	t.checkInvariants()
}

// uncheckedInsert places a key known not to be in the table into the first
// empty slot of its probe sequence. The table must hold no tombstones.
func (t *Table) uncheckedInsert(key uint32) bool {
	h := t.strategy.home(key, t.capacity, t.capacityLog2)
	mask := t.capacity - 1
	for i := uint32(0); i < t.capacity; i++ {
		s := &t.slots[(h+i)&mask]
		if s.empty() {
			s.key = key
			s.occupied = true
			t.used++
			return true
		}
	}
	return false
}

func (t *Table) checkInvariants() {
	if invariants {
		if t.capacity == 0 || t.capacity&(t.capacity-1) != 0 {
			panic(fmt.Sprintf("invariant failed: capacity %d is not a power of two", t.capacity))
		}
		if uint32(len(t.slots)) != t.capacity {
			panic(fmt.Sprintf("invariant failed: %d slots, but capacity is %d", len(t.slots), t.capacity))
		}
		if l := log2(t.capacity); l != t.capacityLog2 {
			panic(fmt.Sprintf("invariant failed: capacityLog2 is %d, expected %d", t.capacityLog2, l))
		}

		// For every live slot, verify the probe walk finds it.
		var used uint32
		for i := range t.slots {
			s := &t.slots[i]
			if s.deleted && !s.occupied {
				panic(fmt.Sprintf("invariant failed: slot(%d) deleted but not occupied\n%s", i, t.debugString()))
			}
			if !s.live() {
				continue
			}
			used++
			if _, f := t.find(s.key); f != s {
				panic(fmt.Sprintf("invariant failed: slot(%d): %d not found [home=%d]\n%s",
					i, s.key, t.strategy.home(s.key, t.capacity, t.capacityLog2), t.debugString()))
			}
		}
		if used != t.used {
			panic(fmt.Sprintf("invariant failed: found %d live slots, but used count is %d\n%s",
				used, t.used, t.debugString()))
		}
	}
}

func (t *Table) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "strategy=%s  capacity=%d  used=%d\n", t.strategy, t.capacity, t.used)
	for i := range t.slots {
		s := &t.slots[i]
		switch {
		case s.empty():
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case s.tombstone():
			fmt.Fprintf(&buf, "  %4d: deleted [key=%d]\n", i, s.key)
		default:
			fmt.Fprintf(&buf, "  %4d: %d [home=%d]\n", i, s.key,
				t.strategy.home(s.key, t.capacity, t.capacityLog2))
		}
	}
	return buf.String()
}
