//go:build unix

// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// FromConn detaches the socket behind conn into a SocketChannel.
//
// The descriptor is duplicated and conn is closed, so the Go netpoller no
// longer watches it. The returned channel is already non-blocking.
func FromConn(conn net.Conn) (*SocketChannel, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, errors.Errorf("transport: %T does not expose a descriptor", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, errors.Wrap(err, "transport: syscall conn")
	}

	var (
		nfd  = -1
		derr error
	)
	if err := raw.Control(func(fd uintptr) {
		nfd, derr = unix.Dup(int(fd))
	}); err != nil {
		return nil, errors.Wrap(err, "transport: control")
	}
	if derr != nil {
		return nil, errors.Wrap(os.NewSyscallError("dup", derr), "transport")
	}

	ch := NewSocketChannel(nfd)
	ch.local = conn.LocalAddr()
	ch.remote = conn.RemoteAddr()
	// the dup keeps the socket alive
	conn.Close()

	unix.CloseOnExec(nfd)
	if err := ch.SetNonblocking(); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// Dial connects to a TCP address and returns the connection as a SocketChannel.
func Dial(addr string) (*SocketChannel, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial")
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return FromConn(conn)
}
