// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

// IOEvent is the readiness interest kind for AddIO/DelIO.
type IOEvent uint8

const (
	EvRead IOEvent = 1 << iota
	EvWrite
)

// fdSlot records which coroutines wait for readiness on one file
// descriptor: at most one reader and one writer. Owned by the
// registering scheduler and accessed only from its thread.
type fdSlot struct {
	ev  IOEvent
	rco uint32
	wco uint32
}

// muxEvent is one surfaced readiness completion. Error and hang-up
// conditions fold into both directions so the waiter can observe the
// failure.
type muxEvent struct {
	fd    int
	wake  bool
	read  bool
	write bool
}

const muxEventCap = 1024
