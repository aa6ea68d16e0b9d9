// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"sync"

	"code.hybscloud.com/kont"
)

// Mutex is a coroutine mutual-exclusion lock with FIFO handoff:
// Unlock passes ownership directly to the oldest waiter, forwarding
// the wake through the waiter's owner scheduler. The zero value is an
// unlocked mutex.
type Mutex struct {
	mu     sync.Mutex
	locked bool
	waitq  []*Coroutine
}

// mtxLock is the effect operation acquiring a Mutex.
type mtxLock struct {
	kont.Phantom[struct{}]
	M *Mutex
}

func (op mtxLock) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	m := op.M
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return struct{}{}, false
	}
	m.waitq = append(m.waitq, co)
	m.mu.Unlock()
	co.park = parkLock
	return nil, true
}

// Lock returns a computation that acquires the mutex, parking the
// coroutine while a peer holds it.
func (m *Mutex) Lock() kont.Eff[struct{}] {
	return kont.Perform(mtxLock{M: m})
}

// LockThen acquires the mutex and continues with next.
func LockThen[B any](m *Mutex, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(m.Lock(), next)
}

// TryLock acquires the mutex iff it is free. Callable from any thread.
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Unlock releases the mutex, handing it to the oldest waiter if any.
// Callable from any thread.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	if len(m.waitq) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	co := m.waitq[0]
	n := copy(m.waitq, m.waitq[1:])
	m.waitq[n] = nil
	m.waitq = m.waitq[:n]
	m.mu.Unlock()
	co.owner.ready(co)
}
