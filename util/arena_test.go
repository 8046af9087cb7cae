// util/arena_test.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"testing"
)

func TestArena(t *testing.T) {
	type item struct {
		a, b int64
	}
	// 16-byte items; room for 1000.
	a := NewArena[item](16000)
	if a.Cap() != 1000 {
		t.Fatalf("expected capacity 1000, got %d", a.Cap())
	}

	var ptrs []*item
	for i := range 1000 {
		p := a.Alloc()
		if p == nil {
			t.Fatalf("allocation %d failed", i)
		}
		if p.a != 0 || p.b != 0 {
			t.Errorf("allocation %d not zeroed", i)
		}
		p.a, p.b = int64(i), int64(-i)
		ptrs = append(ptrs, p)
	}
	if p := a.Alloc(); p != nil {
		t.Errorf("expected exhausted arena to return nil")
	}
	if a.Len() != 1000 {
		t.Errorf("expected 1000 allocations, got %d", a.Len())
	}

	// Earlier pointers are stable across chunk allocation.
	for i, p := range ptrs {
		if p.a != int64(i) || p.b != int64(-i) {
			t.Errorf("item %d clobbered: %+v", i, *p)
		}
	}

	a.Release()
	if a.Len() != 0 || a.Alloc() == nil {
		t.Errorf("expected usable arena after Release")
	}
}

func TestArenaMinimumCapacity(t *testing.T) {
	a := NewArena[[64]byte](10)
	if a.Cap() != 1 {
		t.Errorf("expected capacity 1, got %d", a.Cap())
	}
}
