//go:build unix

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/momentics/clink/api"
	"github.com/momentics/clink/transport"
)

// ListenerConfig holds configuration for the TCP listener.
type ListenerConfig struct {
	Addr        string                            // TCP address to bind (e.g., ":9001")
	ConnHandler func(ch *transport.SocketChannel) // Receives every accepted channel
}

// Listener accepts TCP connections and converts them to SocketChannels.
type Listener struct {
	ln      net.Listener
	handler func(ch *transport.SocketChannel)
	closed  atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// Listen binds cfg.Addr. Call Serve to start accepting.
func Listen(cfg *ListenerConfig) (*Listener, error) {
	if cfg == nil || cfg.ConnHandler == nil {
		return nil, errors.Wrap(api.ErrInvalidArgument, "tcp: nil handler")
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, errors.Wrap(err, "tcp listen failed")
	}
	return &Listener{
		ln:      ln,
		handler: cfg.ConnHandler,
		done:    make(chan struct{}),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop until Close. It returns nil after Close.
func (l *Listener) Serve() error {
	defer l.once.Do(func() { close(l.done) })
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.Printf("[tcp] accept error: %v", err)
				continue
			}
			return errors.Wrap(err, "tcp accept")
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		ch, err := transport.FromConn(conn)
		if err != nil {
			log.Printf("[tcp] detach %v: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}
		l.handler(ch)
	}
}

// Close stops the accept loop. Use Done to wait for Serve to return.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.ln.Close()
}

// Done is closed when Serve returns.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}
