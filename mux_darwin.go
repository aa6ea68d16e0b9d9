// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build darwin

package coro

import "golang.org/x/sys/unix"

// netpoller is the kqueue readiness multiplexer. A non-blocking pipe
// serves as the wake channel.
type netpoller struct {
	kq     int
	waker  int // read end, registered with kqueue
	wakew  int // write end
	events []unix.Kevent_t
}

func (p *netpoller) open() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		unix.Close(kq)
		return err
	}
	unix.SetNonblock(fds[0], true)
	unix.SetNonblock(fds[1], true)
	change := unix.Kevent_t{
		Ident:  uint64(fds[0]),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{change}, nil, nil); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		unix.Close(kq)
		return err
	}
	p.kq = kq
	p.waker = fds[0]
	p.wakew = fds[1]
	p.events = make([]unix.Kevent_t, muxEventCap)
	return nil
}

func (p *netpoller) close() {
	unix.Close(p.waker)
	unix.Close(p.wakew)
	unix.Close(p.kq)
}

// ctl moves fd's registered interest from old to new. Deleting an
// unregistered filter is not an error here; kqueue reports ENOENT and
// the slot bookkeeping is authoritative.
func (p *netpoller) ctl(fd int, prev, next IOEvent) error {
	var changes []unix.Kevent_t
	flip := prev ^ next
	if flip&EvRead != 0 {
		flags := uint16(unix.EV_ADD)
		if next&EvRead == 0 {
			flags = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if flip&EvWrite != 0 {
		flags := uint16(unix.EV_ADD)
		if next&EvWrite == 0 {
			flags = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *netpoller) wait(ms uint32) (int, error) {
	var ts *unix.Timespec
	if ms != infiniteMs {
		t := unix.NsecToTimespec(int64(ms) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.events, ts)
	if err == unix.EINTR {
		return 0, nil
	}
	return n, err
}

func (p *netpoller) event(i int) muxEvent {
	ev := &p.events[i]
	fd := int(ev.Ident)
	if fd == p.waker {
		return muxEvent{wake: true}
	}
	return muxEvent{
		fd:    fd,
		read:  ev.Filter == unix.EVFILT_READ,
		write: ev.Filter == unix.EVFILT_WRITE,
	}
}

func (p *netpoller) signal() {
	one := [1]byte{1}
	unix.Write(p.wakew, one[:])
}

func (p *netpoller) drainWake() {
	var buf [64]byte
	unix.Read(p.waker, buf[:])
}
