// util/prof.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"os"
	"runtime/pprof"
	"sync"
)

// Profiler records a CPU profile and/or writes a heap profile when it is
// stopped.
type Profiler struct {
	cpu, mem *os.File
	once     sync.Once
}

// StartProfiler starts CPU profiling to the file named cpu, if not empty;
// Stop then also writes a heap profile to mem, if it is not empty.
func StartProfiler(cpu, mem string) (*Profiler, error) {
	p := &Profiler{}

	var err error
	if cpu != "" {
		if p.cpu, err = os.Create(cpu); err != nil {
			return nil, fmt.Errorf("%s: unable to create CPU profile file: %w", cpu, err)
		} else if err = pprof.StartCPUProfile(p.cpu); err != nil {
			p.cpu.Close()
			return nil, fmt.Errorf("unable to start CPU profile: %w", err)
		}
	}

	if mem != "" {
		if p.mem, err = os.Create(mem); err != nil {
			p.Stop()
			return nil, fmt.Errorf("%s: unable to create memory profile file: %w", mem, err)
		}
	}

	return p, nil
}

// Active returns true if any profiling was requested.
func (p *Profiler) Active() bool {
	return p != nil && (p.cpu != nil || p.mem != nil)
}

// Stop finishes profiling; it may safely be called more than once.
func (p *Profiler) Stop() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		if p.cpu != nil {
			pprof.StopCPUProfile()
			p.cpu.Close()
		}
		if p.mem != nil {
			if err := pprof.WriteHeapProfile(p.mem); err != nil {
				fmt.Fprintf(os.Stderr, "unable to write memory profile file: %v", err)
			}
			p.mem.Close()
		}
	})
}
