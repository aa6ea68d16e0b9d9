// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package coro

import "golang.org/x/sys/unix"

// netpoller is the epoll readiness multiplexer. An eventfd doubles as
// the wake pipe: writing it makes a blocked wait return promptly.
type netpoller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
}

func (p *netpoller) open() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return err
	}
	p.epfd = epfd
	p.wakefd = wakefd
	p.events = make([]unix.EpollEvent, muxEventCap)
	return nil
}

func (p *netpoller) close() {
	unix.Close(p.wakefd)
	unix.Close(p.epfd)
}

// ctl moves fd's registered interest from old to new.
func (p *netpoller) ctl(fd int, prev, next IOEvent) error {
	if prev == next {
		return nil
	}
	var ev unix.EpollEvent
	ev.Fd = int32(fd)
	if next&EvRead != 0 {
		ev.Events |= unix.EPOLLIN
	}
	if next&EvWrite != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	op := unix.EPOLL_CTL_MOD
	switch {
	case prev == 0:
		op = unix.EPOLL_CTL_ADD
	case next == 0:
		op = unix.EPOLL_CTL_DEL
	}
	return unix.EpollCtl(p.epfd, op, fd, &ev)
}

// wait blocks up to ms (infiniteMs blocks indefinitely) and returns
// the number of surfaced events. EINTR is absorbed as an empty tick.
func (p *netpoller) wait(ms uint32) (int, error) {
	timeout := -1
	if ms != infiniteMs {
		timeout = int(ms)
	}
	n, err := unix.EpollWait(p.epfd, p.events, timeout)
	if err == unix.EINTR {
		return 0, nil
	}
	return n, err
}

func (p *netpoller) event(i int) muxEvent {
	ev := &p.events[i]
	fd := int(ev.Fd)
	if fd == p.wakefd {
		return muxEvent{wake: true}
	}
	in := ev.Events&unix.EPOLLIN != 0
	out := ev.Events&unix.EPOLLOUT != 0
	return muxEvent{fd: fd, read: in || !out, write: out || !in}
}

func (p *netpoller) signal() {
	var one = [8]byte{1}
	for {
		_, err := unix.Write(p.wakefd, one[:])
		if err != unix.EINTR {
			return
		}
	}
}

func (p *netpoller) drainWake() {
	var buf [8]byte
	unix.Read(p.wakefd, buf[:])
}
