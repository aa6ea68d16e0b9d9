// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"code.hybscloud.com/kont"
)

// Done returns the terminal coroutine computation.
func Done() kont.Eff[struct{}] {
	return kont.Pure(struct{}{})
}

// Do lifts a plain closure into a coroutine computation. The closure
// runs atomically between suspension points on the owner scheduler's
// thread.
func Do(fn func()) kont.Eff[struct{}] {
	return kont.Bind(kont.Pure(struct{}{}), func(struct{}) kont.Eff[struct{}] {
		fn()
		return kont.Pure(struct{}{})
	})
}

// YieldThen reschedules cooperatively and then continues with next.
// Fuses Perform(Yield{}) + Then.
func YieldThen[B any](next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Yield{}), next)
}

// SleepBind sleeps ms milliseconds and passes the wake reason to f.
// Fuses Perform(Sleep{Ms: ms}) + Bind.
func SleepBind[B any](ms uint32, f func(timedOut bool) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Sleep{Ms: ms}), f)
}

// TimerThen arms a deadline and continues with next without
// suspending. Fuses Perform(Timer{Ms: ms}) + Then.
func TimerThen[B any](ms uint32, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Timer{Ms: ms}), next)
}

// ParkBind suspends until a wake source fires and passes the wake
// reason to f. Fuses Perform(Park{}) + Bind.
func ParkBind[B any](f func(timedOut bool) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Park{}), f)
}

// AddIOBind registers readiness interest and passes the registration
// result to f. Fuses Perform(AddIO{...}) + Bind.
func AddIOBind[B any](fd int, ev IOEvent, f func(ok bool) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(AddIO{FD: fd, Ev: ev}), f)
}

// DelIOThen unregisters readiness interest and continues with next.
// Fuses Perform(DelIO{...}) + Then.
func DelIOThen[B any](fd int, ev IOEvent, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(DelIO{FD: fd, Ev: ev}), next)
}

// SelfBind passes the running coroutine to f.
// Fuses Perform(Self{}) + Bind.
func SelfBind[B any](f func(co *Coroutine) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Self{}), f)
}

// AllocBind carves size bytes from the coroutine's shared-stack span
// and passes the window to f. Fuses Perform(Alloc{...}) + Bind.
func AllocBind[B any](size int, f func(buf []byte) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Alloc{Size: size}), f)
}

// LoopStep is one iteration outcome of Loop: another iteration
// carrying Next, or completion carrying Result. Built with Continue
// and Finish.
type LoopStep[S, A any] struct {
	Next   S
	Result A
	Done   bool
}

// Continue reports another Loop iteration with state next. The result
// type cannot be inferred from the state and is given explicitly:
// Continue[bool](i + 1).
func Continue[A, S any](next S) LoopStep[S, A] {
	return LoopStep[S, A]{Next: next}
}

// Finish reports Loop completion with result a. The state type cannot
// be inferred from the result and is given explicitly:
// Finish[int](true).
func Finish[S, A any](a A) LoopStep[S, A] {
	return LoopStep[S, A]{Result: a, Done: true}
}

// Loop runs an iterative coroutine body: step consumes the state and
// reports Continue or Finish. Suspending effects inside step park the
// coroutine between iterations, so unbounded loops stay cooperative.
func Loop[S, A any](initial S, step func(S) kont.Eff[LoopStep[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(st LoopStep[S, A]) kont.Eff[A] {
		if st.Done {
			return kont.Pure(st.Result)
		}
		return Loop(st.Next, step)
	})
}
