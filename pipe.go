// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
)

// Serial is a monotonically increasing pipe identifier assigned by
// NewPipe.
type Serial uint32

// pipeSerial is the global monotonic counter behind Serial.
var pipeSerial atomix.Uint32

// Pipe is a bounded single-producer single-consumer channel between
// two coroutines. The data path is a lock-free SPSC ring; parking at
// the empty/full boundary uses per-operation waitx records raced
// against deadlines, so a wake and a timeout can never both commit.
//
// One coroutine may send and one may receive at a time; violating
// that constraint is undefined behavior, as for the underlying ring.
type Pipe[T any] struct {
	mu     sync.Mutex
	ring   lfq.SPSC[T]
	rwait  *pipeWaiter[T]
	wwait  *pipeWaiter[T]
	serial Serial
}

// pipeWaiter is the per-operation record of a parked sender or
// receiver. The CAS loser abandons it; records are never reused
// across parks.
type pipeWaiter[T any] struct {
	co        *Coroutine
	wx        waitx
	deadline  int64 // absolute ms; 0 means none
	val       T
	delivered bool
}

// NewPipe creates a pipe with the given ring capacity (minimum 2,
// rounded up to a power of two by the ring).
func NewPipe[T any](capacity int) *Pipe[T] {
	if capacity < 2 {
		capacity = 2
	}
	p := &Pipe[T]{serial: Serial(pipeSerial.Add(1))}
	p.ring.Init(capacity)
	return p
}

// Serial returns the serial number assigned to this pipe.
func (p *Pipe[T]) Serial() Serial {
	return p.serial
}

// wakeReader hands a wake to the parked receiver, if the deadline has
// not claimed it first.
func (p *Pipe[T]) wakeReader() {
	p.mu.Lock()
	w := p.rwait
	p.rwait = nil
	p.mu.Unlock()
	if w != nil && w.wx.commitReady() {
		w.co.owner.ready(w.co)
	}
}

// wakeWriter hands a wake to the parked sender, if the deadline has
// not claimed it first.
func (p *Pipe[T]) wakeWriter() {
	p.mu.Lock()
	w := p.wwait
	p.wwait = nil
	p.mu.Unlock()
	if w != nil && w.wx.commitReady() {
		w.co.owner.ready(w.co)
	}
}

// takeDeadline recovers the absolute deadline from a retried
// operation's abandoned record, or computes it fresh from ms.
func takeDeadline[T any](co *Coroutine, ms uint32) int64 {
	if w, ok := co.wrec.(*pipeWaiter[T]); ok {
		co.wrec = nil
		return w.deadline
	}
	if ms != Forever {
		return nowMs() + int64(ms)
	}
	return 0
}

// pipeSend is the effect operation enqueueing one value.
// Non-blocking at the ring: a full ring parks the sender with a fresh
// waitx record instead of spinning.
type pipeSend[T any] struct {
	kont.Phantom[bool]
	P  *Pipe[T]
	V  T
	Ms uint32
}

func (op pipeSend[T]) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	p := op.P
	deadline := takeDeadline[T](co, op.Ms)
	v := op.V
	err := p.ring.Enqueue(&v)
	if err != nil && !lfq.IsWouldBlock(err) {
		panic("coro: pipe enqueue: " + err.Error())
	}
	if err != nil {
		// Recheck under the lock so a receiver draining concurrently
		// cannot miss the parked record.
		p.mu.Lock()
		err = p.ring.Enqueue(&v)
		if err != nil {
			w := &pipeWaiter[T]{co: co, deadline: deadline}
			p.wwait = w
			p.mu.Unlock()
			co.wrec = w
			co.wx = &w.wx
			if deadline != 0 {
				s.armTimerAt(co, deadline)
			}
			co.park = parkSuspend
			return nil, true
		}
		p.mu.Unlock()
	}
	p.wakeReader()
	return false, false
}

// pipeRecv is the effect operation dequeueing one value. The value is
// handed to the continuation through the per-operation record.
type pipeRecv[T any] struct {
	kont.Phantom[bool]
	P  *Pipe[T]
	Ms uint32
}

func (op pipeRecv[T]) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	p := op.P
	deadline := takeDeadline[T](co, op.Ms)
	v, err := p.ring.Dequeue()
	if err != nil && !lfq.IsWouldBlock(err) {
		panic("coro: pipe dequeue: " + err.Error())
	}
	if err != nil {
		p.mu.Lock()
		v, err = p.ring.Dequeue()
		if err != nil {
			w := &pipeWaiter[T]{co: co, deadline: deadline}
			p.rwait = w
			p.mu.Unlock()
			co.wrec = w
			co.wx = &w.wx
			if deadline != 0 {
				s.armTimerAt(co, deadline)
			}
			co.park = parkSuspend
			return nil, true
		}
		p.mu.Unlock()
	}
	co.wrec = &pipeWaiter[T]{val: v, delivered: true}
	p.wakeWriter()
	return false, false
}

// SendBind sends v on p, parking while the ring is full, and passes
// the outcome to f: false means the deadline expired first. ms is a
// relative deadline in milliseconds; Forever disables it.
func SendBind[T, B any](p *Pipe[T], v T, ms uint32, f func(ok bool) kont.Eff[B]) kont.Eff[B] {
	return SelfBind(func(co *Coroutine) kont.Eff[B] {
		return kont.Bind(Loop(struct{}{}, func(struct{}) kont.Eff[LoopStep[struct{}, bool]] {
			return kont.Bind(kont.Perform(pipeSend[T]{P: p, V: v, Ms: ms}), func(timedOut bool) kont.Eff[LoopStep[struct{}, bool]] {
				if timedOut {
					co.wrec = nil
					return kont.Pure(Finish[struct{}](false))
				}
				if co.wrec != nil {
					// Space was signaled; retry with the recorded deadline.
					return kont.Pure(Continue[bool](struct{}{}))
				}
				return kont.Pure(Finish[struct{}](true))
			})
		}), f)
	})
}

// recvOut carries a received value and its validity through the
// retry loop.
type recvOut[T any] struct {
	v  T
	ok bool
}

// RecvBind receives from p, parking while the ring is empty, and
// passes (value, ok) to f: ok is false when the deadline expired
// first. ms is a relative deadline in milliseconds; Forever disables
// it.
func RecvBind[T, B any](p *Pipe[T], ms uint32, f func(v T, ok bool) kont.Eff[B]) kont.Eff[B] {
	return SelfBind(func(co *Coroutine) kont.Eff[B] {
		return kont.Bind(Loop(struct{}{}, func(struct{}) kont.Eff[LoopStep[struct{}, recvOut[T]]] {
			return kont.Bind(kont.Perform(pipeRecv[T]{P: p, Ms: ms}), func(timedOut bool) kont.Eff[LoopStep[struct{}, recvOut[T]]] {
				if timedOut {
					co.wrec = nil
					return kont.Pure(Finish[struct{}](recvOut[T]{}))
				}
				if w, ok := co.wrec.(*pipeWaiter[T]); ok && w.delivered {
					co.wrec = nil
					return kont.Pure(Finish[struct{}](recvOut[T]{v: w.val, ok: true}))
				}
				// Data was signaled; retry with the recorded deadline.
				return kont.Pure(Continue[recvOut[T]](struct{}{}))
			})
		}), func(r recvOut[T]) kont.Eff[B] {
			return f(r.v, r.ok)
		})
	})
}
