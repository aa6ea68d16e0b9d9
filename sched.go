// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"log/slog"
	"runtime"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

// Scheduler is one event-loop thread of the fleet. It owns a
// coroutine pool, shared-stack slots, a timer queue, a task inbox and
// a readiness mux, and is the only thread that ever resumes its
// coroutines.
//
// Per-tick protocol: wait on the mux, surface readiness events, drain
// the inbox (new tasks, then ready coroutines), run locally yielded
// coroutines, then expire timers. Within one tick the ordering is
// deterministic, which keeps single-scheduler runs reproducible.
type Scheduler struct {
	id        uint32
	stackSize int

	pool    coroPool
	timers  timerQueue
	inbox   taskInbox
	poll    netpoller
	fds     map[int]*fdSlot
	slots   [numStackSlots]stackSlot
	nextSid uint8

	mainCo  *Coroutine
	running *Coroutine
	waitMs  uint32

	// yielded collects coroutines rescheduled by Yield; drained FIFO
	// right after the inbox phase of the current tick, or on the next
	// tick for coroutines that yield after that phase. yieldSwap is
	// the double buffer.
	yielded   []*Coroutine
	yieldSwap []*Coroutine

	stop        atomix.Uint32
	timeoutFlag bool

	log   *slog.Logger
	debug bool
	done  chan struct{}
}

func newScheduler(id uint32, cfg *Config) (*Scheduler, error) {
	s := &Scheduler{
		id:        id,
		stackSize: cfg.StackSize,
		fds:       make(map[int]*fdSlot),
		waitMs:    infiniteMs,
		done:      make(chan struct{}),
	}
	if cfg.DebugLog != nil {
		s.log = cfg.DebugLog.With("sched", id)
		s.debug = true
	} else {
		s.log = slog.Default().With("sched", id)
	}
	s.mainCo = s.pool.init(s)
	if err := s.poll.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the scheduler's index in [0, SchedulerNum).
func (s *Scheduler) ID() uint32 { return s.id }

// Go dispatches a new coroutine pinned to this scheduler. Safe from
// any goroutine; silently dropped once the scheduler is stopping.
func (s *Scheduler) Go(m kont.Eff[struct{}]) {
	s.GoExpr(kont.Reify(m))
}

// GoExpr dispatches an Expr-world coroutine pinned to this scheduler.
func (s *Scheduler) GoExpr(e kont.Expr[struct{}]) {
	if s.stop.Load() != 0 {
		return
	}
	s.inbox.pushNew(e)
	s.poll.signal()
}

// ready hands a parked coroutine back to its owner for resumption.
// Callable from any thread; this is the cross-scheduler delivery
// path, so a completion observed on a foreign thread still resumes on
// the owner only.
func (s *Scheduler) ready(co *Coroutine) {
	if s.stop.Load() != 0 {
		return
	}
	s.inbox.pushReady(co)
	s.poll.signal()
}

func (s *Scheduler) start() {
	go s.loop()
}

// halt requests a stop, wakes the mux, and waits for the loop thread
// to exit. Idempotent.
func (s *Scheduler) halt() {
	if s.stop.Swap(1) == 0 {
		s.poll.signal()
		<-s.done
	} else {
		<-s.done
	}
}

func (s *Scheduler) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)
	defer s.poll.close()

	var newTasks []kont.Expr[struct{}]
	var readyTasks []*Coroutine
	var expired []*Coroutine

	for s.stop.Load() == 0 {
		n, err := s.poll.wait(s.waitMs)
		if s.stop.Load() != 0 {
			break
		}
		if err != nil {
			s.log.Error("mux wait error", "err", err)
			continue
		}

		for i := 0; i < n; i++ {
			ev := s.poll.event(i)
			if ev.wake {
				s.poll.drainWake()
				continue
			}
			sl := s.fds[ev.fd]
			if sl == nil {
				continue
			}
			if ev.read && sl.rco != 0 {
				if co := s.pool.get(sl.rco); co != nil && co.susp != nil {
					s.resume(co)
				}
			}
			if ev.write && sl.wco != 0 {
				if co := s.pool.get(sl.wco); co != nil && co.susp != nil {
					s.resume(co)
				}
			}
		}

		s.inbox.drain(&newTasks, &readyTasks)
		if s.debug && (len(newTasks) > 0 || len(readyTasks) > 0) {
			s.log.Debug("inbox drained", "new", len(newTasks), "ready", len(readyTasks))
		}
		for i := range newTasks {
			s.resume(s.newCoroutine(newTasks[i]))
			newTasks[i] = kont.Expr[struct{}]{}
		}
		for i, co := range readyTasks {
			if co.susp != nil {
				s.resume(co)
			}
			readyTasks[i] = nil
		}
		if len(s.yielded) > 0 {
			s.yielded, s.yieldSwap = s.yieldSwap[:0], s.yielded
			for i, co := range s.yieldSwap {
				s.resume(co)
				s.yieldSwap[i] = nil
			}
		}

		expired = expired[:0]
		s.waitMs = s.timers.expire(nowMs(), &expired)
		if len(expired) > 0 {
			if s.debug {
				s.log.Debug("timers expired", "n", len(expired))
			}
			s.timeoutFlag = true
			for _, co := range expired {
				s.resume(co)
			}
			s.timeoutFlag = false
		}
		if len(s.yielded) > 0 {
			s.waitMs = 0
		}
		s.running = nil
	}
}

func (s *Scheduler) newCoroutine(task kont.Expr[struct{}]) *Coroutine {
	co := s.pool.alloc(s)
	co.task = task
	co.sid = s.nextSid
	s.nextSid = (s.nextSid + 1) % numStackSlots
	return co
}

// resume switches a coroutine in: it becomes the running coroutine
// and, if its slot's incumbent differs, the incumbent's live span is
// saved and this coroutine's bytes are restored. A first resume steps
// the task expression; a continuation cancels any live timer and
// resumes the pending suspension with the wake value.
func (s *Scheduler) resume(co *Coroutine) {
	slot := &s.slots[co.sid]
	if slot.buf == nil {
		slot.buf = make([]byte, s.stackSize)
		slot.co = co
	}
	s.running = co

	var susp *kont.Suspension[struct{}]
	if !co.started {
		if slot.co != co {
			s.saveStack(slot.co)
			slot.co = co
		}
		co.started = true
		if s.debug {
			s.log.Debug("resume new", "co", co.id, "sid", co.sid)
		}
		task := co.task
		co.task = kont.Expr[struct{}]{}
		_, susp = kont.StepExpr(task)
	} else {
		if co.timer != nil {
			if s.debug {
				s.log.Debug("del timer", "co", co.id)
			}
			s.timers.del(co.timer)
			co.timer = nil
		}
		if slot.co != co {
			s.saveStack(slot.co)
			s.restoreStack(co)
			slot.co = co
		}
		if s.debug {
			s.log.Debug("resume", "co", co.id, "saved", co.stackLen)
		}
		v := s.wakeValue(co)
		co.state.Store(stInit)
		co.wx = nil
		co.park = parkNone
		pending := co.susp
		co.susp = nil
		_, susp = pending.Resume(v)
	}
	s.drive(co, susp)
}

// wakeValue builds the resume value matching the effect that parked
// the coroutine. For racing waits the committed waitx state is
// authoritative; otherwise the wake reason is whether this resume
// happens on the timer-expiry path.
func (s *Scheduler) wakeValue(co *Coroutine) kont.Resumed {
	switch co.park {
	case parkYield, parkLock:
		return struct{}{}
	default:
		if co.wx != nil {
			return co.wx.timedOut()
		}
		return s.timeoutFlag
	}
}

// drive evaluates the coroutine until it parks or terminates,
// dispatching immediate operations inline.
func (s *Scheduler) drive(co *Coroutine, susp *kont.Suspension[struct{}]) {
	for susp != nil {
		op, ok := susp.Op().(coroOp)
		if !ok {
			panic("coro: unhandled effect in scheduler")
		}
		v, parked := op.dispatchCoro(s, co)
		if parked {
			co.susp = susp
			return
		}
		_, susp = susp.Resume(v)
	}
	s.recycle(co)
}

// recycle returns a terminated coroutine to the pool. The slot's
// incumbent pointer is left as-is; the dead span stays on the slot
// until another coroutine's resume overwrites it.
func (s *Scheduler) recycle(co *Coroutine) {
	if s.debug {
		s.log.Debug("recycle", "co", co.id)
	}
	s.pool.put(co)
}

func (s *Scheduler) armTimer(co *Coroutine, ms uint32) {
	if ms == infiniteMs {
		return
	}
	s.armTimerAt(co, nowMs()+int64(ms))
}

func (s *Scheduler) armTimerAt(co *Coroutine, when int64) {
	if co.timer != nil {
		s.timers.del(co.timer)
	}
	if s.debug {
		s.log.Debug("add timer", "co", co.id, "when", when)
	}
	co.timer = s.timers.add(when, co)
}

func (s *Scheduler) addIO(fd int, ev IOEvent, co *Coroutine) bool {
	if ev&(EvRead|EvWrite) == 0 {
		return false
	}
	sl := s.fds[fd]
	if sl == nil {
		sl = &fdSlot{}
		s.fds[fd] = sl
	}
	if ev&EvRead != 0 && sl.rco != 0 && sl.rco != co.id {
		return false
	}
	if ev&EvWrite != 0 && sl.wco != 0 && sl.wco != co.id {
		return false
	}
	next := sl.ev | ev
	if next != sl.ev {
		if err := s.poll.ctl(fd, sl.ev, next); err != nil {
			if sl.ev == 0 {
				delete(s.fds, fd)
			}
			s.log.Error("mux register error", "fd", fd, "err", err)
			return false
		}
	}
	if ev&EvRead != 0 {
		sl.rco = co.id
	}
	if ev&EvWrite != 0 {
		sl.wco = co.id
	}
	sl.ev = next
	if s.debug {
		s.log.Debug("add io", "fd", fd, "ev", ev, "co", co.id)
	}
	return true
}

func (s *Scheduler) delIO(fd int, ev IOEvent) {
	sl := s.fds[fd]
	if sl == nil {
		return
	}
	if ev == 0 {
		ev = EvRead | EvWrite
	}
	next := sl.ev &^ ev
	if next != sl.ev {
		if err := s.poll.ctl(fd, sl.ev, next); err != nil {
			s.log.Error("mux unregister error", "fd", fd, "err", err)
		}
	}
	if ev&EvRead != 0 {
		sl.rco = 0
	}
	if ev&EvWrite != 0 {
		sl.wco = 0
	}
	sl.ev = next
	if s.debug {
		s.log.Debug("del io", "fd", fd, "ev", ev)
	}
	if next == 0 {
		delete(s.fds, fd)
	}
}
