// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package coro provides an M:N cooperative coroutine runtime: a small fleet
// of scheduler threads, each driving many coroutines over a non-blocking
// readiness multiplexer, a timer queue, and a task inbox.
//
// Coroutines are algebraic-effect computations on [code.hybscloud.com/kont];
// the scheduler evaluates them one effect at a time with kont's stepping API
// and parks them at suspending effects until a timer, I/O readiness, or a
// peer makes them runnable again.
//
// # Architecture
//
//   - Schedulers: one OS thread each ([SchedulerNum] of them), created by
//     [Init] and joined by [Exit]. A coroutine is owned by the scheduler
//     that created it and never migrates.
//   - Intake: [Go] dispatches a new coroutine to the next scheduler
//     (lock-free round robin); [Scheduler.Go] pins it to one scheduler.
//     Both are safe from any goroutine.
//   - Shared stacks: coroutines on the same stack slot share one buffer;
//     only the incumbent's bytes are live, peers hold byte-exact copies.
//     [Alloc] carves coroutine-local spans; [Coroutine.OnStack] queries them.
//   - Wake reasons: every suspending effect other than [Yield] and a
//     [Mutex] lock resumes with a timedOut bool, resolved against
//     readiness or peer signals by atomic CAS.
//
// # Effects
//
//   - Operations: [Yield], [Sleep], [Timer], [Park], [AddIO], [DelIO],
//     [Self], [Alloc].
//   - Cont-world: [YieldThen], [SleepBind], [TimerThen], [ParkBind],
//     [AddIOBind], [DelIOThen], [SelfBind], [AllocBind], [Done].
//   - Expr-world: zero-allocation variants like [ExprYieldThen],
//     [ExprSleepBind], etc. Bridge with kont.Reify and kont.Reflect.
//   - Iterative: [Loop] with [Continue] and [Finish] for coroutine
//     bodies that run unbounded rounds cooperatively.
//
// # Synchronization
//
// [Event], [WaitGroup], [Mutex], [Pipe], and [ObjectPool] are built on the
// runtime's wake races: readiness and timeouts commit through one-shot CAS
// transitions, so at most one wake reason ever wins.
//
// # Example
//
//	coro.Init()
//	done := make(chan struct{})
//	coro.Go(coro.SleepBind(100, func(bool) kont.Eff[struct{}] {
//		close(done)
//		return coro.Done()
//	}))
//	<-done
//	coro.Exit()
package coro
