// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"container/heap"
	"time"
)

// Forever disables the deadline on timed waits.
const Forever = ^uint32(0)

// infiniteMs is the internal wait value meaning "no deadline".
const infiniteMs = Forever

func nowMs() int64 { return time.Now().UnixMilli() }

// timerEntry is a handle into the timer queue. The queue is the sole
// owner; coroutines hold an opaque pointer that the scheduler
// invalidates on resume.
type timerEntry struct {
	when  int64
	seq   uint64
	co    *Coroutine
	index int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

// Equal deadlines are serviced in insertion order; seq breaks the tie.
func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// timerQueue is the per-scheduler ordered timer map. Accessed only
// from the owner's thread.
type timerQueue struct {
	h   timerHeap
	seq uint64
}

func (q *timerQueue) add(when int64, co *Coroutine) *timerEntry {
	q.seq++
	e := &timerEntry{when: when, seq: q.seq, co: co}
	heap.Push(&q.h, e)
	return e
}

func (q *timerQueue) del(e *timerEntry) {
	if e.index >= 0 {
		heap.Remove(&q.h, e.index)
	}
}

// expire collects coroutines whose deadline passed and returns the
// delta to the next deadline, or infiniteMs if the queue is empty.
//
// Eligibility resolves the race against other wake paths:
//   - no waitx: eligible if the coroutine never left Init, or if
//     swapping Wait back to Init wins; a peer that already moved the
//     state to Ready owns the wake, so the swap only resets the state
//     to Init and the coroutine is not collected.
//   - waitx: eligible iff Init→Timeout commits; the loser abandons
//     the wake to whoever completed the wait.
func (q *timerQueue) expire(now int64, out *[]*Coroutine) uint32 {
	for len(q.h) > 0 && q.h[0].when <= now {
		e := heap.Pop(&q.h).(*timerEntry)
		co := e.co
		if co.timer != e {
			continue
		}
		co.timer = nil
		if co.wx == nil {
			if st := co.state.Load(); st == stInit || co.state.Swap(stInit) == stWait {
				*out = append(*out, co)
			}
		} else if co.wx.commitTimeout() {
			*out = append(*out, co)
		}
	}
	if len(q.h) == 0 {
		return infiniteMs
	}
	if d := q.h[0].when - now; d > 0 {
		return uint32(d)
	}
	return 0
}
