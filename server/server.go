//go:build unix

// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCPServer accepts connections, wraps each in a ClientHandler and forwards
// messages between clients.

package server

import (
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/momentics/clink/api"
	"github.com/momentics/clink/control"
	"github.com/momentics/clink/internal/session"
	"github.com/momentics/clink/pool"
	"github.com/momentics/clink/reactor"
	"github.com/momentics/clink/transport"
	"github.com/momentics/clink/transport/tcp"
)

// ErrAlreadyRunning is returned by a second Start.
var ErrAlreadyRunning = errors.Wrap(api.ErrAlreadyExists, "server already running")

// publisher is implemented by providers that export metrics.
type publisher interface {
	Publish(m *control.MetricsRegistry)
}

// TCPServer is the chat server.
type TCPServer struct {
	cfg      *Config
	provider api.IoProvider
	ownsIo   bool
	metrics  *control.MetricsRegistry
	probes   *control.DebugProbes
	pool     *pool.BytePool
	clients  *session.Store
	listener *tcp.Listener
	serveErr chan error
	mu       sync.Mutex
	started  bool
	stopped  atomic.Bool
}

var _ api.GracefulShutdown = (*TCPServer)(nil)

// New builds a server. Without WithProvider a SelectorProvider is created
// from cfg and closed by Stop.
func New(cfg *Config, opts ...Option) (*TCPServer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	s := &TCPServer{
		cfg:      &c,
		probes:   control.NewDebugProbes(),
		serveErr: make(chan error, 1),
	}
	for _, o := range opts {
		o(s)
	}
	if s.cfg.RecvSize <= 0 {
		s.cfg.RecvSize = pool.DefaultSlabSize
	}
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry()
	}
	if s.provider == nil {
		p, err := reactor.NewSelectorProvider(s.cfg.ReactorConfig())
		if err != nil {
			return nil, errors.Wrap(err, "create selector")
		}
		s.provider = p
		s.ownsIo = true
	}
	s.pool = pool.NewBytePool(s.cfg.RecvSize)
	s.clients = session.NewStore(s.cfg.Shards)

	s.probes.RegisterProbe("clients", func() any { return s.Clients() })
	s.probes.RegisterProbe("metrics", func() any {
		s.publish()
		return s.metrics.GetSnapshot()
	})
	if sp, ok := s.provider.(*reactor.SelectorProvider); ok {
		s.probes.RegisterProbe("reactor", func() any { return sp.Stats() })
	}
	s.probes.RegisterProbe("pool", func() any { return s.pool.Stats() })
	return s, nil
}

// Start binds the listen address and begins accepting in the background.
func (s *TCPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyRunning
	}
	if s.stopped.Load() {
		return errors.Wrap(api.ErrClosed, "server stopped")
	}

	ln, err := tcp.Listen(&tcp.ListenerConfig{
		Addr:        s.cfg.Listen,
		ConnHandler: s.accept,
	})
	if err != nil {
		return err
	}
	s.listener = ln
	s.started = true
	go func() {
		s.serveErr <- ln.Serve()
	}()
	log.Printf("[server] listening on %v", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Clients counts connected clients.
func (s *TCPServer) Clients() int {
	return s.clients.Len()
}

// Metrics returns the registry the server publishes into.
func (s *TCPServer) Metrics() *control.MetricsRegistry {
	return s.metrics
}

// DumpState evaluates every debug probe.
func (s *TCPServer) DumpState() map[string]any {
	return s.probes.DumpState()
}

func (s *TCPServer) accept(ch *transport.SocketChannel) {
	if s.stopped.Load() {
		ch.Close()
		return
	}
	h, err := newClientHandler(s, ch)
	if err != nil {
		log.Printf("[server] client %v: %v", ch.RemoteAddr(), err)
		ch.Close()
		return
	}
	s.clients.Add(h.conn)
	s.metrics.Add("server.accepted", 1)
	if err := h.conn.Start(); err != nil {
		log.Printf("[server] client %s start: %v", h.info, err)
		return
	}
	log.Printf("[server] client connected: %s (%s)", h.info, h.conn.ID())
}

// forward sends msg to every client except from.
func (s *TCPServer) forward(from *session.Connector, msg string) {
	s.metrics.Add("server.messages", 1)
	for _, c := range s.clients.Snapshot() {
		if c == from {
			continue
		}
		if err := c.Send(msg); err != nil && !errors.Is(err, api.ErrClosed) {
			log.Printf("[server] forward to %s: %v", c.ID(), err)
		}
	}
}

func (s *TCPServer) remove(c *session.Connector) {
	if s.clients.Delete(c.ID()) {
		s.metrics.Add("server.disconnected", 1)
	}
}

func (s *TCPServer) publish() {
	s.metrics.Set("server.clients", s.Clients())
	if p, ok := s.provider.(publisher); ok {
		p.Publish(s.metrics)
	}
}

// Stop closes the listener and every client, then the provider when the
// server created it. Subsequent calls are no-ops.
func (s *TCPServer) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	var serveErr error
	if ln != nil {
		ln.Close()
		<-ln.Done()
		serveErr = <-s.serveErr
	}
	for _, c := range s.clients.Snapshot() {
		c.Close()
	}
	s.publish()
	if s.ownsIo {
		if err := s.provider.Close(); err != nil {
			return errors.Wrap(err, "close provider")
		}
	}
	log.Printf("[server] stopped")
	return serveErr
}

// Shutdown is Stop.
func (s *TCPServer) Shutdown() error {
	return s.Stop()
}
