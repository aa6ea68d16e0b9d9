// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"testing"
	"time"
	"unsafe"

	"code.hybscloud.com/coro"
	"code.hybscloud.com/kont"
)

// TestSharedStackIntegrity pins 16 coroutines to one scheduler (twice
// as many as there are stack slots), each filling a 64 KB span with
// its own id and re-verifying the bytes across 10 yields. Incumbent
// switches save and restore spans byte-exactly, so no coroutine may
// ever observe a peer's bytes.
func TestSharedStackIntegrity(t *testing.T) {
	s := coro.AllSchedulers()[0]
	const n = 16
	const spanSize = 64 << 10
	const rounds = 10

	mismatches := 0
	remaining := n
	done := make(chan struct{})

	for i := 0; i < n; i++ {
		id := byte(i + 1)
		s.Go(coro.AllocBind(spanSize, func(buf []byte) kont.Eff[struct{}] {
			for j := range buf {
				buf[j] = id
			}
			return coro.Loop(0, func(round int) kont.Eff[coro.LoopStep[int, struct{}]] {
				if round == rounds {
					remaining--
					if remaining == 0 {
						close(done)
					}
					return kont.Pure(coro.Finish[int](struct{}{}))
				}
				return coro.YieldThen(kont.Bind(kont.Pure(struct{}{}), func(struct{}) kont.Eff[coro.LoopStep[int, struct{}]] {
					for j := range buf {
						if buf[j] != id {
							mismatches++
							break
						}
					}
					return kont.Pure(coro.Continue[struct{}](round + 1))
				}))
			})
		}))
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shared-stack coroutines never completed")
	}
	if mismatches != 0 {
		t.Fatalf("span corruption observed in %d rounds", mismatches)
	}
}

func TestOnStack(t *testing.T) {
	s := coro.AllSchedulers()[0]
	type probe struct {
		span bool
		heap bool
	}
	res := make(chan probe, 1)
	var off int
	s.Go(coro.AllocBind(128, func(buf []byte) kont.Eff[struct{}] {
		return coro.SelfBind(func(co *coro.Coroutine) kont.Eff[struct{}] {
			res <- probe{
				span: co.OnStack(unsafe.Pointer(&buf[0])),
				heap: co.OnStack(unsafe.Pointer(&off)),
			}
			return coro.Done()
		})
	}))
	select {
	case got := <-res:
		if !got.span {
			t.Fatal("span pointer not reported on stack")
		}
		if got.heap {
			t.Fatal("foreign pointer reported on stack")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("probe coroutine never ran")
	}
}
