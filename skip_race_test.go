// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package coro_test

import "testing"

// skipRace skips tests whose wake paths cross atomix/lfq memory
// ordering. The race detector tracks per-variable happens-before and
// cannot see cross-variable orderings (store-release on ring data,
// load-acquire on index; CAS-committed wake states), producing false
// positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: wake paths use cross-variable memory ordering")
}
