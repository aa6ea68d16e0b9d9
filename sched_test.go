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

func TestGoFuncRuns(t *testing.T) {
	done := make(chan struct{})
	coro.GoFunc(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coroutine never ran")
	}
}

func TestSleepWake(t *testing.T) {
	type wake struct {
		d        time.Duration
		timedOut bool
	}
	woke := make(chan wake, 1)
	start := time.Now()
	coro.Go(coro.SleepBind(100, func(timedOut bool) kont.Eff[struct{}] {
		woke <- wake{time.Since(start), timedOut}
		return coro.Done()
	}))
	select {
	case w := <-woke:
		if !w.timedOut {
			t.Fatal("sleep wake reason: got readiness, want timeout")
		}
		if w.d < 100*time.Millisecond {
			t.Fatalf("woke after %v, want >= 100ms", w.d)
		}
		if w.d > 300*time.Millisecond {
			t.Fatalf("woke after %v, want <= 300ms", w.d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sleep never woke")
	}
}

// TestFanOutOrdering submits 1000 coroutines to one scheduler; each
// appends its id, yields once, and appends again. The first wave must
// be strictly FIFO in submission order, the second wave strictly FIFO
// in yield order, and every second append must follow its first.
func TestFanOutOrdering(t *testing.T) {
	s := coro.AllSchedulers()[0]
	const n = 1000

	order := make([]int, 0, 2*n)
	remaining := n
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		s.Go(kont.Then(
			coro.Do(func() { order = append(order, i) }),
			coro.YieldThen(coro.Do(func() {
				order = append(order, i)
				remaining--
				if remaining == 0 {
					close(done)
				}
			})),
		))
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("fan-out never completed")
	}

	if len(order) != 2*n {
		t.Fatalf("appends got %d, want %d", len(order), 2*n)
	}
	first := make([]int, n)
	second := make([]int, n)
	for i := range first {
		first[i] = -1
		second[i] = -1
	}
	for pos, id := range order {
		if first[id] == -1 {
			first[id] = pos
		} else if second[id] == -1 {
			second[id] = pos
		} else {
			t.Fatalf("id %d appended more than twice", id)
		}
	}
	lastFirst, lastSecond := -1, -1
	for id := 0; id < n; id++ {
		if first[id] <= lastFirst {
			t.Fatalf("first wave out of FIFO order at id %d", id)
		}
		lastFirst = first[id]
		if second[id] <= lastSecond {
			t.Fatalf("second wave out of FIFO order at id %d", id)
		}
		lastSecond = second[id]
		if second[id] <= first[id] {
			t.Fatalf("id %d: second append at %d not after first at %d", id, second[id], first[id])
		}
	}
}

func TestSelfIntrospection(t *testing.T) {
	s := coro.AllSchedulers()[0]
	type info struct {
		id  uint32
		sid uint32
	}
	res := make(chan info, 1)
	s.Go(coro.SelfBind(func(co *coro.Coroutine) kont.Eff[struct{}] {
		res <- info{co.ID(), co.Scheduler().ID()}
		return coro.Done()
	}))
	select {
	case got := <-res:
		if got.id == 0 {
			t.Fatal("coroutine id 0 is reserved for the main context")
		}
		if got.sid != s.ID() {
			t.Fatalf("owner scheduler got %d, want %d", got.sid, s.ID())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("introspection coroutine never ran")
	}
}

// TestTimerPark arms a deadline, parks, and must wake exactly once
// with the timeout reason. The resumer deletes the handle, so no
// second wake can follow.
func TestTimerPark(t *testing.T) {
	resumes := make(chan bool, 2)
	coro.Go(coro.TimerThen(50, coro.ParkBind(func(timedOut bool) kont.Eff[struct{}] {
		resumes <- timedOut
		return coro.Done()
	})))
	select {
	case timedOut := <-resumes:
		if !timedOut {
			t.Fatal("park woke without a timeout and without readiness")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("park never woke")
	}
	select {
	case <-resumes:
		t.Fatal("second resume observed")
	case <-time.After(200 * time.Millisecond):
	}
}
