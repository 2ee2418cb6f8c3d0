//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) multiplexer. Every descriptor is armed with EPOLLONESHOT so
// the kernel disables it after one event, mirroring the one-shot interest of
// the reactor. An eventfd registered level-triggered provides forced wakeups.

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/clink/api"
)

// epollMultiplexer is an epoll instance watching a single direction.
type epollMultiplexer struct {
	epfd   int
	wakefd int
	flag   uint32 // EPOLLIN or EPOLLOUT
	events []unix.EpollEvent
}

func newMultiplexer(dir api.Direction, maxEvents int) (multiplexer, error) {
	var flag uint32
	switch dir {
	case api.DirectionInput:
		flag = unix.EPOLLIN
	case api.DirectionOutput:
		flag = unix.EPOLLOUT
	default:
		return nil, fmt.Errorf("epoll: direction %v: %w", dir, api.ErrInvalidArgument)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}

	return &epollMultiplexer{
		epfd:   epfd,
		wakefd: wakefd,
		flag:   flag,
		events: make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (m *epollMultiplexer) arm(fd int, gen uint32) error {
	// Pad carries the generation through the kernel untouched
	ev := unix.EpollEvent{Events: m.flag | unix.EPOLLONESHOT, Fd: int32(fd), Pad: int32(gen)}
	err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	if err == unix.ENOENT {
		err = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	if err != nil {
		return fmt.Errorf("epoll ctl arm fd=%d: %w", fd, err)
	}
	return nil
}

func (m *epollMultiplexer) remove(fd int) error {
	err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	switch err {
	case nil, unix.ENOENT, unix.EBADF:
		return nil
	}
	return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
}

func (m *epollMultiplexer) wait(ready []readyEvent) (int, error) {
	n, err := unix.EpollWait(m.epfd, m.events, -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	k := 0
	for i := 0; i < n; i++ {
		fd := int(m.events[i].Fd)
		if fd == m.wakefd {
			m.drain()
			continue
		}
		ready[k] = readyEvent{fd: fd, gen: uint32(m.events[i].Pad)}
		k++
	}
	return k, nil
}

func (m *epollMultiplexer) wakeup() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(m.wakefd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (m *epollMultiplexer) drain() {
	var buf [8]byte
	unix.Read(m.wakefd, buf[:])
}

func (m *epollMultiplexer) close() error {
	err1 := unix.Close(m.wakefd)
	err2 := unix.Close(m.epfd)
	if err1 != nil {
		return err1
	}
	return err2
}
