// util/arena.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"unsafe"
)

const arenaChunkItems = 256

// Arena is a bump allocator for values of a single type. Its capacity is
// fixed when it is created; objects are never freed individually and
// pointers returned by Alloc remain valid for the lifetime of the arena.
type Arena[T any] struct {
	chunks   [][]T
	n        int
	capacity int
}

// NewArena returns an arena that holds as many T values as fit in the
// given number of bytes (always at least one).
func NewArena[T any](budgetBytes int) *Arena[T] {
	var t T
	sz := int(unsafe.Sizeof(t))
	if sz == 0 {
		sz = 1
	}
	return &Arena[T]{capacity: max(1, budgetBytes/sz)}
}

// Alloc returns a pointer to a zero-valued T, or nil if the arena is
// exhausted.
func (a *Arena[T]) Alloc() *T {
	if a.n >= a.capacity {
		return nil
	}

	ci, off := a.n/arenaChunkItems, a.n%arenaChunkItems
	if ci == len(a.chunks) {
		a.chunks = append(a.chunks, make([]T, min(arenaChunkItems, a.capacity-a.n)))
	}
	a.n++
	return &a.chunks[ci][off]
}

// Len returns the number of allocated objects.
func (a *Arena[T]) Len() int { return a.n }

// Cap returns the maximum number of objects the arena can hold.
func (a *Arena[T]) Cap() int { return a.capacity }

// Release drops all of the arena's memory at once; pointers returned by
// Alloc must not be used afterward.
func (a *Arena[T]) Release() {
	a.chunks = nil
	a.n = 0
}
