/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package xsync holds small concurrency-safe containers.
package xsync

import (
	"sync"
)

// Map is a generic map guarded by a read-write mutex.
// It must not be copied after first use.
type Map[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewMap returns an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{data: make(map[K]V)}
}

// Set stores v under k, replacing any previous value.
func (m *Map[K, V]) Set(k K, v V) {
	m.mu.Lock()
	m.data[k] = v
	m.mu.Unlock()
}

// SetIfAbsent stores v under k unless k is present. It returns the value
// stored under k and whether v was stored.
func (m *Map[K, V]) SetIfAbsent(k K, v V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[k]; ok {
		return old, false
	}
	m.data[k] = v
	return v, true
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	m.mu.RLock()
	v, ok := m.data[k]
	m.mu.RUnlock()
	return v, ok
}

// Delete removes k and returns the removed value.
func (m *Map[K, V]) Delete(k K) (V, bool) {
	m.mu.Lock()
	v, ok := m.data[k]
	delete(m.data, k)
	m.mu.Unlock()
	return v, ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	l := len(m.data)
	m.mu.RUnlock()
	return l
}

// Range calls f for every entry under the read lock, in no particular
// order, until f returns false. f must not mutate m.
func (m *Map[K, V]) Range(f func(K, V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.data {
		if !f(k, v) {
			return
		}
	}
}

// Values returns a snapshot of the values.
func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := make([]V, 0, len(m.data))
	for _, v := range m.data {
		values = append(values, v)
	}
	return values
}

// Reset removes every entry.
func (m *Map[K, V]) Reset() {
	m.mu.Lock()
	clear(m.data)
	m.mu.Unlock()
}
