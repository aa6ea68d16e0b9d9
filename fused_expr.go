// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import (
	"code.hybscloud.com/kont"
)

// Pre-allocated erased operations and frames to eliminate heap escapes
// when boxing empty structs into any/kont.Frame during Expr-world
// execution.
var (
	exprReturnFrame kont.Frame  = kont.ReturnFrame{}
	exprYield       kont.Erased = Yield{}
	exprPark        kont.Erased = Park{}
	exprSelf        kont.Erased = Self{}
)

// identityResume is the identity resume function for EffectFrame
// construction. Named function produces a static function value,
// consistent with kont convention.
func identityResume(v kont.Erased) kont.Erased { return v }

// ExprDone returns the terminal Expr-world coroutine computation.
func ExprDone[A any](a A) kont.Expr[A] {
	return kont.ExprReturn(a)
}

// ExprYieldThen reschedules cooperatively and then continues with
// next. Fuses ExprPerform(Yield{}) + ExprThen.
func ExprYieldThen[B any](next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprYield
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

func boolBindUnwind[B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(bool) kont.Expr[B])
	result := f(current.(bool))
	return kont.Erased(result.Value), result.Frame
}

// ExprSleepBind sleeps ms milliseconds and passes the wake reason to
// f. Fuses ExprPerform(Sleep{Ms: ms}) + ExprBind.
func ExprSleepBind[B any](ms uint32, f func(timedOut bool) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = boolBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Sleep{Ms: ms}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprParkBind suspends until a wake source fires and passes the wake
// reason to f. Fuses ExprPerform(Park{}) + ExprBind.
func ExprParkBind[B any](f func(timedOut bool) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = boolBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprPark
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprTimerThen arms a deadline and continues with next without
// suspending. Fuses ExprPerform(Timer{Ms: ms}) + ExprThen.
func ExprTimerThen[B any](ms uint32, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = Timer{Ms: ms}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

func selfBindUnwind[B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(*Coroutine) kont.Expr[B])
	result := f(current.(*Coroutine))
	return kont.Erased(result.Value), result.Frame
}

// ExprSelfBind passes the running coroutine to f.
// Fuses ExprPerform(Self{}) + ExprBind.
func ExprSelfBind[B any](f func(co *Coroutine) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = selfBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprSelf
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

func allocBindUnwind[B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func([]byte) kont.Expr[B])
	result := f(current.([]byte))
	return kont.Erased(result.Value), result.Frame
}

// ExprAllocBind carves size bytes from the coroutine's shared-stack
// span and passes the window to f. Fuses ExprPerform(Alloc{...}) +
// ExprBind.
func ExprAllocBind[B any](size int, f func(buf []byte) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = allocBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Alloc{Size: size}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}
