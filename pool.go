// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

// parkKind records which suspending effect parked a coroutine, so the
// resumer can build the matching resume value.
type parkKind uint8

const (
	parkNone parkKind = iota
	parkYield
	parkLock
	parkSuspend
)

// Coroutine is a cooperative execution unit owned by one scheduler.
// All fields except state are accessed only from the owner's thread.
type Coroutine struct {
	id    uint32
	sid   uint8
	park  parkKind
	owner *Scheduler

	// state is observed by peers and the timer queue; see waitx.go.
	state atomix.Uint32

	// task holds the computation before the first resume; susp holds
	// the pending suspension after it. Exactly one is live at a time;
	// both empty means the coroutine is running or terminated.
	task    kont.Expr[struct{}]
	started bool
	susp    *kont.Suspension[struct{}]

	timer *timerEntry
	wx    *waitx
	wrec  any

	// saved holds this coroutine's shared-stack span while another
	// coroutine on the same slot is the incumbent.
	saved    []byte
	stackLen int
}

// ID returns the coroutine's dense non-zero identifier.
func (co *Coroutine) ID() uint32 { return co.id }

// Scheduler returns the scheduler that owns this coroutine.
func (co *Coroutine) Scheduler() *Scheduler { return co.owner }

// coroPool is a dense index-allocated pool of coroutine records with
// free-list reuse. Index 0 is permanently reserved for the scheduler's
// main context. Owned by one scheduler; accessed only from its thread.
type coroPool struct {
	cos  []*Coroutine
	free []uint32
}

func (p *coroPool) init(s *Scheduler) *Coroutine {
	main := &Coroutine{id: 0, owner: s}
	p.cos = append(p.cos[:0], main)
	p.free = p.free[:0]
	return main
}

func (p *coroPool) alloc(s *Scheduler) *Coroutine {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return p.cos[id]
	}
	co := &Coroutine{id: uint32(len(p.cos)), owner: s}
	p.cos = append(p.cos, co)
	return co
}

// get returns the coroutine with the given id, or nil if the id is out
// of range or names the main context.
func (p *coroPool) get(id uint32) *Coroutine {
	if id == 0 || id >= uint32(len(p.cos)) {
		return nil
	}
	return p.cos[id]
}

// put recycles a terminated coroutine record. The saved buffer keeps
// its capacity for reuse.
func (p *coroPool) put(co *Coroutine) {
	co.state.Store(stInit)
	co.park = parkNone
	co.task = kont.Expr[struct{}]{}
	co.started = false
	co.susp = nil
	co.timer = nil
	co.wx = nil
	co.wrec = nil
	co.saved = co.saved[:0]
	co.stackLen = 0
	p.free = append(p.free, co.id)
}
