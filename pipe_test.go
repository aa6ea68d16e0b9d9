// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro_test

import (
	"reflect"
	"testing"
	"testing/quick"
	"time"

	"code.hybscloud.com/coro"
	"code.hybscloud.com/kont"
)

// sendAll streams payload through p and reports completion.
func sendAll(p *coro.Pipe[int], payload []int, done chan<- bool) kont.Eff[struct{}] {
	return kont.Bind(coro.Loop(0, func(i int) kont.Eff[coro.LoopStep[int, bool]] {
		if i == len(payload) {
			return kont.Pure(coro.Finish[int](true))
		}
		return coro.SendBind(p, payload[i], coro.Forever, func(ok bool) kont.Eff[coro.LoopStep[int, bool]] {
			if !ok {
				return kont.Pure(coro.Finish[int](false))
			}
			return kont.Pure(coro.Continue[bool](i + 1))
		})
	}), func(ok bool) kont.Eff[struct{}] {
		done <- ok
		return coro.Done()
	})
}

// recvN collects n values from p.
func recvN(p *coro.Pipe[int], n int, out chan<- []int) kont.Eff[struct{}] {
	return kont.Bind(coro.Loop(make([]int, 0, n), func(acc []int) kont.Eff[coro.LoopStep[[]int, []int]] {
		if len(acc) == n {
			return kont.Pure(coro.Finish[[]int](acc))
		}
		return coro.RecvBind(p, coro.Forever, func(v int, ok bool) kont.Eff[coro.LoopStep[[]int, []int]] {
			if !ok {
				return kont.Pure(coro.Finish[[]int](acc))
			}
			return kont.Pure(coro.Continue[[]int](append(acc, v)))
		})
	}), func(acc []int) kont.Eff[struct{}] {
		out <- acc
		return coro.Done()
	})
}

func TestPipeSendRecv(t *testing.T) {
	skipRace(t)
	p := coro.NewPipe[int](4)
	payload := make([]int, 64)
	for i := range payload {
		payload[i] = i * 3
	}
	sent := make(chan bool, 1)
	got := make(chan []int, 1)
	coro.Go(recvN(p, len(payload), got))
	coro.Go(sendAll(p, payload, sent))

	select {
	case acc := <-got:
		if !reflect.DeepEqual(acc, payload) {
			t.Fatalf("received %v, want %v", acc, payload)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("receiver never finished")
	}
	if ok := <-sent; !ok {
		t.Fatal("sender reported failure")
	}
}

func TestPipeRecvTimeout(t *testing.T) {
	skipRace(t)
	p := coro.NewPipe[int](4)
	type wake struct {
		ok bool
		d  time.Duration
	}
	res := make(chan wake, 1)
	start := time.Now()
	coro.Go(coro.RecvBind(p, 50, func(v int, ok bool) kont.Eff[struct{}] {
		res <- wake{ok, time.Since(start)}
		return coro.Done()
	}))
	select {
	case w := <-res:
		if w.ok {
			t.Fatal("recv on empty pipe succeeded")
		}
		if w.d < 50*time.Millisecond {
			t.Fatalf("timed out after %v, want >= 50ms", w.d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("receiver never woke")
	}
}

func TestPipeSendTimeout(t *testing.T) {
	skipRace(t)
	p := coro.NewPipe[int](2)
	res := make(chan bool, 1)
	// Fill the ring, then the third send must hit the deadline: no
	// receiver ever drains.
	coro.Go(coro.SendBind(p, 1, coro.Forever, func(bool) kont.Eff[struct{}] {
		return coro.SendBind(p, 2, coro.Forever, func(bool) kont.Eff[struct{}] {
			return coro.SendBind(p, 3, 50, func(ok bool) kont.Eff[struct{}] {
				res <- ok
				return coro.Done()
			})
		})
	}))
	select {
	case ok := <-res:
		if ok {
			t.Fatal("send into a full ring succeeded without a receiver")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sender never woke")
	}
}

func TestPipeSerialMonotonic(t *testing.T) {
	p1 := coro.NewPipe[int](2)
	p2 := coro.NewPipe[int](2)
	if p1.Serial() >= p2.Serial() {
		t.Fatalf("serials not increasing: %d >= %d", p1.Serial(), p2.Serial())
	}
}

// TestPropertyPipeFIFO proves that for any generated payload the pipe
// delivers every element exactly once, in order.
func TestPropertyPipeFIFO(t *testing.T) {
	skipRace(t)
	propertyFIFO := func(raw []int16) bool {
		payload := make([]int, len(raw))
		for i, v := range raw {
			payload[i] = int(v)
		}
		p := coro.NewPipe[int](4)
		sent := make(chan bool, 1)
		got := make(chan []int, 1)
		coro.Go(recvN(p, len(payload), got))
		coro.Go(sendAll(p, payload, sent))
		acc := <-got
		<-sent
		if len(payload) == 0 && len(acc) == 0 {
			return true
		}
		return reflect.DeepEqual(acc, payload)
	}
	cfg := &quick.Config{MaxCount: 25}
	if err := quick.Check(propertyFIFO, cfg); err != nil {
		t.Fatal(err)
	}
}
