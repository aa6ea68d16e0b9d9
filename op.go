// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"code.hybscloud.com/kont"
)

// coroOp is the structural interface for runtime operations. The
// scheduler dispatches it while driving a coroutine: an immediate
// operation returns its resume value with parked=false; a suspending
// operation registers its wake sources and returns parked=true, and
// the coroutine is resumed later with the wake value matching its
// park kind.
type coroOp interface {
	dispatchCoro(s *Scheduler, co *Coroutine) (v kont.Resumed, parked bool)
}

// Yield is the effect operation for cooperative rescheduling.
// Perform(Yield{}) re-enqueues the coroutine at the tail of its
// scheduler's yielded list, which runs in FIFO order after the tick's
// I/O and task intake: a coroutine that yields during I/O or intake
// runs again later in the same tick, one that yields after that phase
// runs on the next tick.
type Yield struct {
	kont.Phantom[struct{}]
}

func (Yield) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	if s.debug {
		s.log.Debug("yield", "co", co.id)
	}
	co.park = parkYield
	s.yielded = append(s.yielded, co)
	return nil, true
}

// Sleep is the effect operation for a timed suspension.
// Perform(Sleep{Ms: ms}) parks the coroutine for ms milliseconds and
// resumes with timedOut == true. The resume value exists so sleep and
// racing waits share one suspension shape.
type Sleep struct {
	kont.Phantom[bool]
	Ms uint32
}

func (op Sleep) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	s.armTimer(co, op.Ms)
	co.park = parkSuspend
	return nil, true
}

// Timer is the effect operation for arming a deadline without
// suspending. Perform(Timer{Ms: ms}) resumes immediately; a later
// Park is woken by the deadline unless readiness wins first.
type Timer struct {
	kont.Phantom[struct{}]
	Ms uint32
}

func (op Timer) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	s.armTimer(co, op.Ms)
	return struct{}{}, false
}

// Park is the effect operation for suspending until an armed timer
// fires, registered I/O becomes ready, or a peer readies the
// coroutine. Resumes with timedOut reporting whether the timer won.
type Park struct {
	kont.Phantom[bool]
}

func (Park) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	co.park = parkSuspend
	return nil, true
}

// AddIO is the effect operation for registering readiness interest on
// a file descriptor. Resumes immediately with false if the slot's
// direction is already claimed by another coroutine or registration
// fails. The caller is responsible for DelIO before abandoning the
// interest.
type AddIO struct {
	kont.Phantom[bool]
	FD int
	Ev IOEvent
}

func (op AddIO) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	return s.addIO(op.FD, op.Ev, co), false
}

// DelIO is the effect operation for unregistering readiness interest.
// Ev == 0 drops both directions.
type DelIO struct {
	kont.Phantom[struct{}]
	FD int
	Ev IOEvent
}

func (op DelIO) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	s.delIO(op.FD, op.Ev)
	return struct{}{}, false
}

// Self is the effect operation for introspection: resumes immediately
// with the running coroutine.
type Self struct {
	kont.Phantom[*Coroutine]
}

func (Self) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	return co, false
}

// Alloc is the effect operation for carving a coroutine-local span
// from the shared-stack slot. The span survives suspension
// byte-exactly; see stack.go.
type Alloc struct {
	kont.Phantom[[]byte]
	Size int
}

func (op Alloc) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	return s.allocSpan(co, op.Size), false
}
