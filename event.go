// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Event is a level-triggered wake-up primitive for coroutines and
// plain goroutines. Signal wakes every coroutine currently waiting
// and latches until a waiter consumes it. The zero value is ready to
// use.
//
// The coroutine wake races the waiter's deadline through the
// coroutine state: Signal commits Wait→Ready, timer expiry commits
// Wait→Init; exactly one side wins.
type Event struct {
	mu       sync.Mutex
	waiters  map[*Coroutine]struct{}
	signaled bool
	threads  atomix.Uint32
}

// evWait is the effect operation parking a coroutine on an event.
type evWait struct {
	kont.Phantom[bool]
	E  *Event
	Ms uint32
}

func (op evWait) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	e := op.E
	e.mu.Lock()
	if e.signaled {
		if e.threads.Load() == 0 {
			e.signaled = false
		}
		e.mu.Unlock()
		return false, false
	}
	if e.waiters == nil {
		e.waiters = make(map[*Coroutine]struct{})
	}
	co.state.Store(stWait)
	e.waiters[co] = struct{}{}
	e.mu.Unlock()
	if op.Ms != infiniteMs {
		s.armTimer(co, op.Ms)
	}
	co.park = parkSuspend
	return nil, true
}

// Wait returns a computation that parks the coroutine until the event
// is signaled or ms milliseconds pass (Forever disables the
// deadline). The result is true when woken by Signal, false on
// timeout.
func (e *Event) Wait(ms uint32) kont.Eff[bool] {
	return SelfBind(func(co *Coroutine) kont.Eff[bool] {
		return kont.Bind(kont.Perform(evWait{E: e, Ms: ms}), func(timedOut bool) kont.Eff[bool] {
			if timedOut {
				e.mu.Lock()
				delete(e.waiters, co)
				e.mu.Unlock()
			}
			return kont.Pure(!timedOut)
		})
	})
}

// Signal wakes all currently waiting coroutines and any blocked
// WaitSync callers. Callable from any thread, including inside a
// coroutine.
func (e *Event) Signal() {
	var wake []*Coroutine
	e.mu.Lock()
	for co := range e.waiters {
		wake = append(wake, co)
		delete(e.waiters, co)
	}
	e.signaled = true
	e.mu.Unlock()

	// Wait→Ready must win against timer expiry before the coroutine
	// is handed to its owner.
	for _, co := range wake {
		if co.state.CompareAndSwap(stWait, stReady) {
			co.owner.ready(co)
		}
	}
}

// WaitSync blocks the calling goroutine (not a coroutine) until the
// event is signaled, waiting past the boundary with adaptive backoff.
func (e *Event) WaitSync() {
	e.threads.Add(1)
	var bo iox.Backoff
	for {
		e.mu.Lock()
		if e.signaled {
			if e.threads.Add(^uint32(0)) == 0 {
				e.signaled = false
			}
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
		bo.Wait()
	}
}

// WaitGroup waits for a collection of coroutines to finish.
type WaitGroup struct {
	n  atomix.Uint32
	ev Event
}

// Add increments the counter by n.
func (wg *WaitGroup) Add(n uint32) {
	wg.n.Add(n)
}

// Done decrements the counter, signaling the waiters at zero.
func (wg *WaitGroup) Done() {
	left := wg.n.Add(^uint32(0))
	if left == ^uint32(0) {
		panic("coro: WaitGroup counter underflow")
	}
	if left == 0 {
		wg.ev.Signal()
	}
}

// Wait returns a computation that parks the coroutine until the
// counter reaches zero.
func (wg *WaitGroup) Wait() kont.Eff[struct{}] {
	return kont.Bind(wg.ev.Wait(infiniteMs), func(bool) kont.Eff[struct{}] {
		return kont.Pure(struct{}{})
	})
}

// WaitSync blocks the calling goroutine until the counter reaches
// zero.
func (wg *WaitGroup) WaitSync() {
	wg.ev.WaitSync()
}
