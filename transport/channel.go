//go:build unix

// File: transport/channel.go
// Author: momentics <momentics@gmail.com>
//
// SocketChannel owns a raw non-blocking socket descriptor so it can be
// registered with the reactor's own multiplexers instead of the Go netpoller.

package transport

import (
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/clink/api"
)

// SocketChannel is a raw socket descriptor implementing api.Channel.
//
// Read and Write make one system call. EAGAIN is reported as (0, nil); an
// orderly peer shutdown is reported by Read as (0, io.EOF).
type SocketChannel struct {
	mu     sync.RWMutex // held shared by I/O, exclusive by Close
	fd     int
	closed atomic.Bool

	local  net.Addr
	remote net.Addr
}

var _ api.Channel = (*SocketChannel)(nil)

// NewSocketChannel takes ownership of fd.
func NewSocketChannel(fd int) *SocketChannel {
	return &SocketChannel{fd: fd}
}

// Pair returns two connected, non-blocking AF_UNIX stream channels.
func Pair() (*SocketChannel, *SocketChannel, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, errors.Wrap(os.NewSyscallError("socketpair", err), "transport: pair")
	}
	a, b := NewSocketChannel(fds[0]), NewSocketChannel(fds[1])
	for _, c := range []*SocketChannel{a, b} {
		unix.CloseOnExec(c.fd)
		if err := c.SetNonblocking(); err != nil {
			a.Close()
			b.Close()
			return nil, nil, err
		}
	}
	return a, b, nil
}

// Fd returns the socket descriptor.
func (c *SocketChannel) Fd() int {
	return c.fd
}

// IsOpen reports whether the channel has not been closed.
func (c *SocketChannel) IsOpen() bool {
	return !c.closed.Load()
}

// SetNonblocking switches the descriptor to non-blocking mode.
func (c *SocketChannel) SetNonblocking() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() {
		return api.ErrClosed
	}
	if err := unix.SetNonblock(c.fd, true); err != nil {
		return errors.Wrap(os.NewSyscallError("setnonblock", err), "transport")
	}
	return nil
}

// SetWriteBuffer sets SO_SNDBUF.
func (c *SocketChannel) SetWriteBuffer(bytes int) error {
	return c.setsockopt(unix.SO_SNDBUF, bytes)
}

// SetReadBuffer sets SO_RCVBUF.
func (c *SocketChannel) SetReadBuffer(bytes int) error {
	return c.setsockopt(unix.SO_RCVBUF, bytes)
}

func (c *SocketChannel) setsockopt(opt, value int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() {
		return api.ErrClosed
	}
	if err := unix.SetsockoptInt(c.fd, unix.SOL_SOCKET, opt, value); err != nil {
		return errors.Wrap(os.NewSyscallError("setsockopt", err), "transport")
	}
	return nil
}

// Read makes one read(2) attempt.
func (c *SocketChannel) Read(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() {
		return 0, api.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, nil
		case err != nil:
			return 0, errors.Wrap(os.NewSyscallError("read", err), "transport")
		case n == 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write makes one write(2) attempt and may write less than len(p).
func (c *SocketChannel) Write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed.Load() {
		return 0, api.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Write(c.fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, nil
		case err != nil:
			return 0, errors.Wrap(os.NewSyscallError("write", err), "transport")
		}
		return n, nil
	}
}

// Close releases the descriptor. Later calls return api.ErrClosed.
func (c *SocketChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return api.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := unix.Close(c.fd); err != nil {
		return errors.Wrap(os.NewSyscallError("close", err), "transport")
	}
	return nil
}

// LocalAddr returns the local address when the channel came from a net.Conn.
func (c *SocketChannel) LocalAddr() net.Addr {
	return c.local
}

// RemoteAddr returns the peer address when the channel came from a net.Conn.
func (c *SocketChannel) RemoteAddr() net.Addr {
	return c.remote
}

// String identifies the channel in logs.
func (c *SocketChannel) String() string {
	if c.remote != nil {
		return c.remote.String()
	}
	return "fd:" + strconv.Itoa(c.fd)
}
