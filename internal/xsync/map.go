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

// Package xsync holds small concurrency-safe containers.
package xsync

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Map is a mutex guarded map. The zero value is ready to use.
type Map[K comparable, V any] struct {
	lock    sync.RWMutex
	entries map[K]V
}

// NewMap returns an empty Map
func NewMap[K comparable, V any]() *Map[K, V] {
	return new(Map[K, V])
}

// Store sets the value of key
func (m *Map[K, V]) Store(key K, value V) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.entries == nil {
		m.entries = make(map[K]V)
	}
	m.entries[key] = value
}

// Load returns the value of key
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	value, ok = m.entries[key]
	return
}

// LoadAndDelete removes key and returns the value it held
func (m *Map[K, V]) LoadAndDelete(key K) (value V, ok bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if value, ok = m.entries[key]; ok {
		delete(m.entries, key)
	}
	return
}

// Delete removes key
func (m *Map[K, V]) Delete(key K) {
	m.LoadAndDelete(key)
}

// Len returns the number of keys
func (m *Map[K, V]) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.entries)
}

// Snapshot copies the values out so they can be used without the lock
func (m *Map[K, V]) Snapshot() []V {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return slices.Collect(maps.Values(m.entries))
}

// All iterates over a copy of the entries
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	m.lock.RLock()
	copied := maps.Clone(m.entries)
	m.lock.RUnlock()
	return maps.All(copied)
}
