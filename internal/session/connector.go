// File: internal/session/connector.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connector: newline-framed message stream over a SocketChannelAdapter.

package session

import (
	"bytes"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/clink/adapters"
	"github.com/momentics/clink/api"
	"github.com/momentics/clink/core/buffer"
	"github.com/momentics/clink/pool"
)

// Listener receives connector events. Calls come from reactor workers.
type Listener interface {
	OnMessage(c *Connector, msg string)
	OnClosed(c *Connector)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Message func(c *Connector, msg string)
	Closed  func(c *Connector)
}

func (f ListenerFuncs) OnMessage(c *Connector, msg string) {
	if f.Message != nil {
		f.Message(c, msg)
	}
}

func (f ListenerFuncs) OnClosed(c *Connector) {
	if f.Closed != nil {
		f.Closed(c)
	}
}

// MaxLineSlabs bounds an unterminated line, in receive buffers. A peer that
// exceeds it is disconnected.
const MaxLineSlabs = 64

var connectorSeq atomic.Uint64

// Connector owns one channel for its whole life.
type Connector struct {
	id       string
	adapter  *adapters.SocketChannelAdapter
	listener Listener

	mu       sync.Mutex
	partial  []byte       // bytes of an unterminated line
	outbound *queue.Queue // pending []byte frames
	sending  bool

	closed     atomic.Bool
	closedOnce sync.Once

	msgsIn  atomic.Int64
	msgsOut atomic.Int64

	recv api.IoArgsEventFuncs
	sent api.IoArgsEventFuncs
}

// NewConnector wraps ch. p sizes each receive; nil uses pool.Default().
// Call Start to begin receiving.
func NewConnector(ch api.Channel, provider api.IoProvider, p *pool.BytePool, l Listener) (*Connector, error) {
	if l == nil {
		l = ListenerFuncs{}
	}
	c := &Connector{
		id:       "conn-" + strconv.FormatUint(connectorSeq.Add(1), 10),
		listener: l,
		outbound: queue.New(),
	}
	a, err := adapters.NewSocketChannelAdapter(ch, provider, api.ChannelStatusFunc(c.onChannelClosed), p)
	if err != nil {
		return nil, err
	}
	c.adapter = a
	c.recv = api.IoArgsEventFuncs{Completed: c.onReceived}
	c.sent = api.IoArgsEventFuncs{Completed: c.onSent}
	return c, nil
}

// ID is unique within the process.
func (c *Connector) ID() string { return c.id }

// Channel returns the underlying channel.
func (c *Connector) Channel() api.Channel { return c.adapter.Channel() }

// IsClosed reports whether the connector has closed.
func (c *Connector) IsClosed() bool { return c.closed.Load() }

// Start arms the first receive.
func (c *Connector) Start() error {
	return c.receive()
}

func (c *Connector) receive() error {
	ok, err := c.adapter.ReceiveAsync(c.recv)
	if err != nil {
		return err
	}
	if !ok {
		c.Close()
		return c.errClosed()
	}
	return nil
}

func (c *Connector) onReceived(args *buffer.IoArgs) {
	limit := MaxLineSlabs * args.Capacity()
	lines, overflow := c.frame(args.Bytes(), limit)
	args.Release()
	for _, line := range lines {
		c.msgsIn.Add(1)
		c.listener.OnMessage(c, line)
	}
	if overflow {
		log.Printf("[session] %s line exceeds %d bytes", c.id, limit)
		c.Close()
		return
	}
	if c.closed.Load() {
		return
	}
	if err := c.receive(); err != nil && !c.closed.Load() {
		log.Printf("[session] %s receive: %v", c.id, err)
	}
}

// frame appends data to the partial line and cuts every complete one.
// A trailing carriage return is stripped. overflow reports a leftover partial
// line longer than limit; the leftover is dropped.
func (c *Connector) frame(data []byte, limit int) (lines []string, overflow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partial = append(c.partial, data...)
	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		line := c.partial[:i]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		c.partial = c.partial[i+1:]
	}
	if len(c.partial) > limit {
		overflow = true
		c.partial = nil
	}
	if len(c.partial) == 0 {
		c.partial = nil
	}
	return lines, overflow
}

// Send queues msg for delivery. A newline is appended when missing.
func (c *Connector) Send(msg string) error {
	if c.closed.Load() {
		return c.errClosed()
	}
	frame := []byte(msg)
	if len(frame) == 0 || frame[len(frame)-1] != '\n' {
		frame = append(frame, '\n')
	}

	c.mu.Lock()
	if c.sending {
		c.outbound.Add(frame)
		c.mu.Unlock()
		return nil
	}
	c.sending = true
	c.mu.Unlock()
	return c.sendFrame(frame)
}

func (c *Connector) sendFrame(frame []byte) error {
	ok, err := c.adapter.SendAsync(buffer.NewIoArgsWith(frame), c.sent)
	if err == nil && !ok {
		err = c.errClosed()
	}
	if err != nil {
		c.Close()
		return err
	}
	return nil
}

func (c *Connector) onSent(*buffer.IoArgs) {
	c.msgsOut.Add(1)
	c.mu.Lock()
	if c.outbound.Length() == 0 || c.closed.Load() {
		c.sending = false
		c.mu.Unlock()
		return
	}
	frame := c.outbound.Remove().([]byte)
	c.mu.Unlock()
	if err := c.sendFrame(frame); err != nil && !c.closed.Load() {
		log.Printf("[session] %s send: %v", c.id, err)
	}
}

// Pending reports how many messages wait behind the one in flight.
func (c *Connector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbound.Length()
}

// Stats returns message and byte counters.
func (c *Connector) Stats() map[string]int64 {
	return map[string]int64{
		"messages_in":  c.msgsIn.Load(),
		"messages_out": c.msgsOut.Load(),
		"bytes_in":     c.adapter.BytesIn(),
		"bytes_out":    c.adapter.BytesOut(),
	}
}

// Close closes the adapter. OnClosed runs once, whether the close came from
// here or from an I/O failure.
func (c *Connector) Close() error {
	c.closed.Store(true)
	return c.adapter.Close()
}

func (c *Connector) onChannelClosed(api.Channel) {
	c.closed.Store(true)
	c.closedOnce.Do(func() {
		c.mu.Lock()
		for c.outbound.Length() > 0 {
			c.outbound.Remove()
		}
		c.partial = nil
		c.mu.Unlock()
		c.listener.OnClosed(c)
	})
}

func (c *Connector) errClosed() error {
	return api.NewError(api.ErrCodeClosed, "connector closed").WithContext("id", c.id)
}
