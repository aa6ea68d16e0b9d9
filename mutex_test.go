// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"testing"
	"time"

	"code.hybscloud.com/coro"
	"code.hybscloud.com/kont"
)

// TestMutexExclusion spreads 50 coroutines over the fleet, each
// incrementing a plain counter inside a critical section that yields
// mid-update. Without mutual exclusion the lost updates would show.
func TestMutexExclusion(t *testing.T) {
	var m coro.Mutex
	const n = 50
	counter := 0
	done := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		coro.Go(coro.LockThen(&m,
			coro.SelfBind(func(*coro.Coroutine) kont.Eff[struct{}] {
				c := counter
				return coro.YieldThen(coro.Do(func() {
					counter = c + 1
					m.Unlock()
					done <- struct{}{}
				}))
			})))
	}
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("deadlock: %d of %d critical sections finished", i, n)
		}
	}
	if counter != n {
		t.Fatalf("counter got %d, want %d (lost updates)", counter, n)
	}
}

func TestMutexTryLock(t *testing.T) {
	var m coro.Mutex
	if !m.TryLock() {
		t.Fatal("TryLock on free mutex failed")
	}
	if m.TryLock() {
		t.Fatal("TryLock on held mutex succeeded")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock after Unlock failed")
	}
	m.Unlock()
}
