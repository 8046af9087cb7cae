// util/hashtable.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"hash/maphash"
)

// HashTable is an open-addressed hash table with linear probing. It only
// supports insertion and lookup; entries are never removed, which keeps
// probing simple (no tombstones). The bucket count is always a power of
// two.
type HashTable[K comparable, V any] struct {
	keys   []K
	values []V
	used   []bool
	count  int
	hash   func(K) uint64
}

// NewHashTable returns a hash table that uses the provided hash function.
// If hash is nil, keys are hashed with maphash.Comparable.
func NewHashTable[K comparable, V any](hash func(K) uint64) *HashTable[K, V] {
	if hash == nil {
		seed := maphash.MakeSeed()
		hash = func(k K) uint64 { return maphash.Comparable(seed, k) }
	}
	return &HashTable[K, V]{hash: hash}
}

// HashRune is a cheap integer mixer for rune-keyed tables.
func HashRune(r rune) uint64 {
	h := uint64(r)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

func (t *HashTable[K, V]) Len() int {
	return t.count
}

// Find returns the value stored for k, if present.
func (t *HashTable[K, V]) Find(k K) (V, bool) {
	if t.count == 0 {
		var v V
		return v, false
	}
	if i, ok := t.slot(k); ok {
		return t.values[i], true
	}
	var v V
	return v, false
}

// Add inserts k with value v, replacing the value if k is already present.
func (t *HashTable[K, V]) Add(k K, v V) {
	// Keep the load factor at or under 3/4.
	if 4*(t.count+1) > 3*len(t.keys) {
		t.grow()
	}

	i, found := t.slot(k)
	if !found {
		t.keys[i] = k
		t.used[i] = true
		t.count++
	}
	t.values[i] = v
}

// Range calls fn for each entry in bucket order until fn returns false.
func (t *HashTable[K, V]) Range(fn func(K, V) bool) {
	for i, u := range t.used {
		if u && !fn(t.keys[i], t.values[i]) {
			return
		}
	}
}

// slot returns the index holding k, or the empty index where it would be
// inserted.
func (t *HashTable[K, V]) slot(k K) (int, bool) {
	mask := uint64(len(t.keys) - 1)
	i := t.hash(k) & mask
	for {
		if !t.used[i] {
			return int(i), false
		}
		if t.keys[i] == k {
			return int(i), true
		}
		i = (i + 1) & mask
	}
}

func (t *HashTable[K, V]) grow() {
	n := 16
	if len(t.keys) > 0 {
		n = 2 * len(t.keys)
	}

	keys, values, used := t.keys, t.values, t.used
	t.keys, t.values, t.used = make([]K, n), make([]V, n), make([]bool, n)
	t.count = 0

	for i, u := range used {
		if u {
			j, _ := t.slot(keys[i])
			t.keys[j] = keys[i]
			t.values[j] = values[i]
			t.used[j] = true
			t.count++
		}
	}
}
