// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

// SchedulerManager is the process-wide fleet of schedulers. It is
// created once by Init and stopped once by Exit; re-init is not
// supported.
type SchedulerManager struct {
	scheds []*Scheduler
	seq    atomix.Uint32
	n      uint32
	rem    uint32
	pow2   bool
}

var (
	gOnce        sync.Once
	gMgr         *SchedulerManager
	gConfig      Config
	gInitialized atomix.Uint32
	gStopped     atomix.Uint32
)

// Init starts the scheduler fleet. Idempotent; later calls (and their
// options) are ignored. Go calls it implicitly with defaults.
func Init(opts ...Option) {
	gOnce.Do(func() {
		var cfg Config
		for _, opt := range opts {
			opt(&cfg)
		}
		ncpu := uint32(runtime.NumCPU())
		if cfg.Schedulers == 0 || cfg.Schedulers > ncpu {
			cfg.Schedulers = ncpu
		}
		if cfg.StackSize <= 0 {
			cfg.StackSize = defaultStackSize
		}
		gConfig = cfg

		m := &SchedulerManager{n: cfg.Schedulers}
		m.rem = uint32((uint64(1) << 32) % uint64(cfg.Schedulers))
		m.pow2 = m.rem == 0
		for i := uint32(0); i < cfg.Schedulers; i++ {
			s, err := newScheduler(i, &cfg)
			if err != nil {
				panic("coro: readiness mux init: " + err.Error())
			}
			m.scheds = append(m.scheds, s)
		}
		for _, s := range m.scheds {
			s.start()
		}
		gMgr = m
		gInitialized.Store(1)
	})
}

// Exit stops the fleet: every scheduler's stop flag is raised, its mux
// signaled, and its thread joined. Idempotent; a no-op under
// WithoutExit. After Exit returns no coroutine is running.
func Exit() {
	if gInitialized.Load() == 0 || gConfig.DisableExit {
		return
	}
	if gStopped.CompareAndSwap(0, 1) {
		for _, s := range gMgr.scheds {
			s.halt()
		}
	}
}

// IsStopped reports whether the fleet is not (or no longer) running.
func IsStopped() bool {
	return gInitialized.Load() == 0 || gStopped.Load() != 0
}

// Next returns the next scheduler by lock-free round robin. The
// 32-bit counter's wrap remainder is pre-computed at init and skipped
// on wrap, so the distribution stays exactly uniform modulo the fleet
// size.
func (m *SchedulerManager) Next() *Scheduler {
	if m.pow2 {
		return m.scheds[m.seq.Add(1)&(m.n-1)]
	}
	n := m.seq.Add(1)
	if n == 0 {
		n = m.seq.Add(m.rem)
	}
	return m.scheds[n%m.n]
}

// All returns the fleet's schedulers. Read-only after init.
func (m *SchedulerManager) All() []*Scheduler {
	return m.scheds
}

// Go dispatches a new coroutine to the next scheduler. Safe from any
// goroutine; initializes the fleet with defaults if needed, and
// silently drops the task once the fleet is stopping.
func Go(m kont.Eff[struct{}]) {
	GoExpr(kont.Reify(m))
}

// GoExpr dispatches an Expr-world coroutine to the next scheduler.
func GoExpr(e kont.Expr[struct{}]) {
	Init()
	if gStopped.Load() != 0 {
		return
	}
	gMgr.Next().GoExpr(e)
}

// GoFunc dispatches a plain closure as a coroutine. The closure runs
// to completion without suspension points.
func GoFunc(fn func()) {
	Go(Do(fn))
}

// SchedulerNum returns the fleet size, or the CPU count before init.
func SchedulerNum() int {
	if gInitialized.Load() != 0 {
		return len(gMgr.scheds)
	}
	return runtime.NumCPU()
}

// AllSchedulers returns the fleet's schedulers, initializing with
// defaults if needed.
func AllSchedulers() []*Scheduler {
	Init()
	return gMgr.All()
}

// NextScheduler returns the scheduler the next Go would dispatch to.
func NextScheduler() *Scheduler {
	Init()
	return gMgr.Next()
}
