// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"sync"

	"code.hybscloud.com/kont"
)

// taskInbox is the MPSC hand-off from external threads and peer
// schedulers to one scheduler: new task expressions awaiting coroutine
// creation, and already-created coroutines to resume. Pushes are
// thread-safe; drain is called only by the owner. Every push path must
// also signal the owner's mux so a blocked wait returns promptly.
//
// The lists are deliberately lock-protected rather than lock-free: the
// drain must hand over every queued task even after producers quiesce,
// a guarantee bounded lock-free rings trade away under contention
// thresholds.
type taskInbox struct {
	mu    sync.Mutex
	newQ  []kont.Expr[struct{}]
	ready []*Coroutine
}

func (ib *taskInbox) pushNew(e kont.Expr[struct{}]) {
	ib.mu.Lock()
	ib.newQ = append(ib.newQ, e)
	ib.mu.Unlock()
}

func (ib *taskInbox) pushReady(co *Coroutine) {
	ib.mu.Lock()
	ib.ready = append(ib.ready, co)
	ib.mu.Unlock()
}

// drain swaps the queued lists with the caller's spare buffers. The
// caller processes the returned slices and passes them back, emptied,
// on the next tick.
func (ib *taskInbox) drain(newOut *[]kont.Expr[struct{}], readyOut *[]*Coroutine) {
	ib.mu.Lock()
	*newOut, ib.newQ = ib.newQ, (*newOut)[:0]
	*readyOut, ib.ready = ib.ready, (*readyOut)[:0]
	ib.mu.Unlock()
}
