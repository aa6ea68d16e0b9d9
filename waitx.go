// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

import "code.hybscloud.com/atomix"

// Coroutine wait states. Peers and the timer queue observe and update
// them with atomic operations, so transitions are always CAS or swap.
const (
	stInit uint32 = iota
	stWait
	stReady
)

// waitx states. At most one of wxReady/wxTimeout ever commits.
const (
	wxInit uint32 = iota
	wxReady
	wxTimeout
)

// waitx is the wait coordinator raced between a wake source and the
// timer queue. A synchronization primitive embeds one per parked
// operation; the winner of the CAS owns the wake, the loser abandons
// the enclosing record. A record must not be reused until the CAS
// resolves; primitives allocate a fresh record per park.
type waitx struct {
	state atomix.Uint32
}

// commitReady claims the wake for a readiness/peer signal.
func (w *waitx) commitReady() bool {
	return w.state.CompareAndSwap(wxInit, wxReady)
}

// commitTimeout claims the wake for timer expiry.
func (w *waitx) commitTimeout() bool {
	return w.state.CompareAndSwap(wxInit, wxTimeout)
}

// timedOut reports whether the timeout side won.
func (w *waitx) timedOut() bool {
	return w.state.Load() == wxTimeout
}
