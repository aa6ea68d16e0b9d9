// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"testing"

	"code.hybscloud.com/coro"
)

func TestSchedulerNum(t *testing.T) {
	n := coro.SchedulerNum()
	if n < 1 {
		t.Fatalf("scheduler num got %d, want >= 1", n)
	}
	if got := len(coro.AllSchedulers()); got != n {
		t.Fatalf("AllSchedulers len got %d, want %d", got, n)
	}
}

func TestSchedulerIDs(t *testing.T) {
	seen := make(map[uint32]bool)
	for i, s := range coro.AllSchedulers() {
		if s.ID() != uint32(i) {
			t.Fatalf("scheduler %d has id %d", i, s.ID())
		}
		if seen[s.ID()] {
			t.Fatalf("duplicate scheduler id %d", s.ID())
		}
		seen[s.ID()] = true
	}
}

// TestNextSchedulerUniform draws from the round robin many times more
// than the fleet size; consecutive draws must distribute exactly
// uniformly.
func TestNextSchedulerUniform(t *testing.T) {
	n := coro.SchedulerNum()
	const rounds = 1000
	counts := make(map[uint32]int, n)
	for i := 0; i < rounds*n; i++ {
		counts[coro.NextScheduler().ID()]++
	}
	if len(counts) != n {
		t.Fatalf("draws hit %d schedulers, want %d", len(counts), n)
	}
	for id, c := range counts {
		if c != rounds {
			t.Fatalf("scheduler %d drawn %d times, want exactly %d", id, c, rounds)
		}
	}
}

func TestNotStoppedWhileRunning(t *testing.T) {
	if coro.IsStopped() {
		t.Fatal("fleet reported stopped while tests run")
	}
}
