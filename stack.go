// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "unsafe"

// numStackSlots is the number of shared-stack slots per scheduler.
// Coroutines are pinned to a slot round-robin at creation.
const numStackSlots = 8

// stackSlot is one shared-stack buffer. All coroutines with the same
// sid on one scheduler execute over the same buffer; only the
// incumbent's span is live, every other coroutine on the slot holds a
// byte-exact copy in its saved buffer. The buffer is allocated lazily
// on the first resume of a coroutine pinned to the slot.
type stackSlot struct {
	buf []byte
	co  *Coroutine // incumbent
}

// allocSpan extends the running coroutine's span downward from the
// slot top and returns the new window. Span addresses are stable for
// the coroutine's lifetime; the window contents are only valid while
// the coroutine is the incumbent (the scheduler saves and restores
// them across incumbent switches).
func (s *Scheduler) allocSpan(co *Coroutine, size int) []byte {
	slot := &s.slots[co.sid]
	if size < 0 || co.stackLen+size > len(slot.buf) {
		panic("coro: shared stack overflow")
	}
	co.stackLen += size
	lo := len(slot.buf) - co.stackLen
	return slot.buf[lo : lo+size : lo+size]
}

// saveStack copies the incumbent's live span into its saved buffer.
func (s *Scheduler) saveStack(co *Coroutine) {
	if co == nil || co.stackLen == 0 {
		return
	}
	slot := &s.slots[co.sid]
	if cap(co.saved) < co.stackLen {
		co.saved = make([]byte, co.stackLen)
	} else {
		co.saved = co.saved[:co.stackLen]
	}
	copy(co.saved, slot.buf[len(slot.buf)-co.stackLen:])
}

// restoreStack copies a coroutine's saved span back onto its slot.
// The span occupies the same addresses it was saved from, so the copy
// is verbatim. A length disagreement means the slot geometry was
// corrupted and there is no safe recovery.
func (s *Scheduler) restoreStack(co *Coroutine) {
	if co.stackLen == 0 {
		return
	}
	if len(co.saved) != co.stackLen {
		panic("coro: shared stack restore size mismatch")
	}
	slot := &s.slots[co.sid]
	copy(slot.buf[len(slot.buf)-co.stackLen:], co.saved)
	co.saved = co.saved[:0]
}

// OnStack reports whether p lies in the coroutine's live shared-stack
// span. Must be called on the owner scheduler's thread, i.e. from the
// coroutine's own continuation code.
func (co *Coroutine) OnStack(p unsafe.Pointer) bool {
	buf := co.owner.slots[co.sid].buf
	if len(buf) == 0 || co.stackLen == 0 {
		return false
	}
	base := uintptr(unsafe.Pointer(&buf[0]))
	a := uintptr(p)
	return a >= base+uintptr(len(buf)-co.stackLen) && a < base+uintptr(len(buf))
}
