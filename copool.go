// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"code.hybscloud.com/kont"
)

// ObjectPool caches reusable objects per scheduler, so pop and push
// never contend: each scheduler touches only its own cache, from its
// own thread. Pop and push are coroutine-only effects.
type ObjectPool struct {
	caches [][]any
	maxcap int
	ctor   func() any
	dtor   func(any)
}

// NewObjectPool creates a pool. ctor (optional) builds an object on
// pop from an empty cache; dtor (optional) destroys overflow and
// cleared objects; maxcap bounds each per-scheduler cache when dtor is
// set (<= 0 means unbounded). Without a dtor, pushes beyond maxcap are
// still cached.
func NewObjectPool(ctor func() any, dtor func(any), maxcap int) *ObjectPool {
	Init()
	return &ObjectPool{
		caches: make([][]any, SchedulerNum()),
		maxcap: maxcap,
		ctor:   ctor,
		dtor:   dtor,
	}
}

// poolPop is the effect operation taking an object from the running
// scheduler's cache.
type poolPop struct {
	kont.Phantom[any]
	P *ObjectPool
}

func (op poolPop) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	c := op.P.caches[s.id]
	if n := len(c); n > 0 {
		v := c[n-1]
		c[n-1] = nil
		op.P.caches[s.id] = c[:n-1]
		return v, false
	}
	if op.P.ctor != nil {
		return op.P.ctor(), false
	}
	return nil, false
}

// poolPush is the effect operation returning an object to the running
// scheduler's cache.
type poolPush struct {
	kont.Phantom[struct{}]
	P *ObjectPool
	V any
}

func (op poolPush) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	if op.V == nil {
		return struct{}{}, false
	}
	p := op.P
	if p.maxcap > 0 && len(p.caches[s.id]) >= p.maxcap && p.dtor != nil {
		p.dtor(op.V)
		return struct{}{}, false
	}
	p.caches[s.id] = append(p.caches[s.id], op.V)
	return struct{}{}, false
}

// poolSize is the effect operation reporting the running scheduler's
// cache size.
type poolSize struct {
	kont.Phantom[int]
	P *ObjectPool
}

func (op poolSize) dispatchCoro(s *Scheduler, co *Coroutine) (kont.Resumed, bool) {
	return len(op.P.caches[s.id]), false
}

// Pop returns a computation yielding an object from the running
// scheduler's cache (or a fresh one from the constructor).
func (p *ObjectPool) Pop() kont.Eff[any] {
	return kont.Perform(poolPop{P: p})
}

// Push returns a computation placing v back in the running
// scheduler's cache. nil is ignored. When the cache already holds
// maxcap objects and a dtor is set, v is destroyed instead.
func (p *ObjectPool) Push(v any) kont.Eff[struct{}] {
	return kont.Perform(poolPush{P: p, V: v})
}

// Size returns a computation yielding the running scheduler's cache
// size.
func (p *ObjectPool) Size() kont.Eff[int] {
	return kont.Perform(poolSize{P: p})
}

// Clear empties every per-scheduler cache by running one coroutine on
// each scheduler, and blocks until all are done. With the fleet
// stopped it clears the caches inline.
func (p *ObjectPool) Clear() {
	if IsStopped() {
		for i, c := range p.caches {
			p.drop(c)
			p.caches[i] = nil
		}
		return
	}
	var wg WaitGroup
	scheds := AllSchedulers()
	wg.Add(uint32(len(scheds)))
	for i, s := range scheds {
		i := i
		s.Go(Do(func() {
			p.drop(p.caches[i])
			p.caches[i] = nil
			wg.Done()
		}))
	}
	wg.WaitSync()
}

func (p *ObjectPool) drop(c []any) {
	if p.dtor == nil {
		return
	}
	for _, v := range c {
		p.dtor(v)
	}
}
