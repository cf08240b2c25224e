// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package registry

import (
	"github.com/bits-and-blooms/bitset"
)

// NodeBitmask is a fixed-size bit set over the node id universe.
// The zero value is not usable; create one with NewNodeBitmask.
type NodeBitmask struct {
	bits *bitset.BitSet
}

// NewNodeBitmask creates an empty NodeBitmask sized for MaxNodes
func NewNodeBitmask(ids ...NodeID) NodeBitmask {
	mask := NodeBitmask{bits: bitset.New(MaxNodes + 1)}
	for _, id := range ids {
		mask.Set(id)
	}
	return mask
}

// Set marks the given id. Out of range ids are ignored.
func (m NodeBitmask) Set(id NodeID) {
	if id <= MaxNodes {
		m.bits.Set(uint(id))
	}
}

// Clear unmarks the given id
func (m NodeBitmask) Clear(id NodeID) {
	if id <= MaxNodes {
		m.bits.Clear(uint(id))
	}
}

// Get reports whether the given id is marked
func (m NodeBitmask) Get(id NodeID) bool {
	return id <= MaxNodes && m.bits.Test(uint(id))
}

// Count returns the number of marked ids
func (m NodeBitmask) Count() int {
	return int(m.bits.Count())
}

// IsEmpty reports whether no id is marked
func (m NodeBitmask) IsEmpty() bool {
	return m.bits.None()
}

// Intersects reports whether m and other have at least one id in common
func (m NodeBitmask) Intersects(other NodeBitmask) bool {
	return m.bits.IntersectionCardinality(other.bits) > 0
}

// Equal reports whether m and other mark exactly the same ids
func (m NodeBitmask) Equal(other NodeBitmask) bool {
	return m.bits.Equal(other.bits)
}

// Clone returns an independent copy of m
func (m NodeBitmask) Clone() NodeBitmask {
	return NodeBitmask{bits: m.bits.Clone()}
}

// IDs returns the marked ids in ascending order
func (m NodeBitmask) IDs() []NodeID {
	ids := make([]NodeID, 0, m.bits.Count())
	for i, ok := m.bits.NextSet(0); ok; i, ok = m.bits.NextSet(i + 1) {
		ids = append(ids, NodeID(i))
	}
	return ids
}

// String returns a readable form of the bitmask
func (m NodeBitmask) String() string {
	return m.bits.String()
}
