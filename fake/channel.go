// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scriptable stand-ins for api.Channel and api.IoProvider used by adapter,
// session and server tests.

package fake

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/momentics/clink/api"
)

var nextFd atomic.Int64

func init() {
	// keep clear of real descriptors in the test process
	nextFd.Store(1 << 20)
}

// ReadStep is one scripted Read result. Data is copied into the caller's
// slice; Err is returned alongside.
type ReadStep struct {
	Data []byte
	Err  error
}

// Channel is an in-memory api.Channel. Reads replay a script; once the script
// is exhausted Read reports would-block. Writes accept at most the next
// scripted limit per call and record the bytes written.
type Channel struct {
	fd          int
	mu          sync.Mutex
	reads       []ReadStep
	writeLimits []int
	written     []byte
	writeErr    error
	closeErr    error
	nonblocking bool
	closed      atomic.Bool
	closeCalls  atomic.Int32
}

var _ api.Channel = (*Channel)(nil)

// NewChannel creates an open channel with a unique fake descriptor.
func NewChannel() *Channel {
	return &Channel{fd: int(nextFd.Add(1))}
}

// ScriptRead appends one Read result.
func (c *Channel) ScriptRead(data []byte, err error) {
	c.mu.Lock()
	c.reads = append(c.reads, ReadStep{Data: data, Err: err})
	c.mu.Unlock()
}

// ScriptWrites limits the next writes to the given byte counts. A zero limit
// simulates a full send buffer. Without a script every write is accepted whole.
func (c *Channel) ScriptWrites(limits ...int) {
	c.mu.Lock()
	c.writeLimits = append(c.writeLimits, limits...)
	c.mu.Unlock()
}

// FailWrites makes every following Write return err.
func (c *Channel) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// SetCloseError sets the error returned by Close.
func (c *Channel) SetCloseError(err error) {
	c.mu.Lock()
	c.closeErr = err
	c.mu.Unlock()
}

// Fd returns the fake descriptor.
func (c *Channel) Fd() int { return c.fd }

// IsOpen reports whether Close has not been called.
func (c *Channel) IsOpen() bool { return !c.closed.Load() }

// SetNonblocking records the call.
func (c *Channel) SetNonblocking() error {
	c.mu.Lock()
	c.nonblocking = true
	c.mu.Unlock()
	return nil
}

// Nonblocking reports whether SetNonblocking was called.
func (c *Channel) Nonblocking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonblocking
}

// Read pops the next scripted step.
func (c *Channel) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reads) == 0 {
		return 0, nil
	}
	step := c.reads[0]
	n := copy(p, step.Data)
	if n < len(step.Data) {
		c.reads[0].Data = step.Data[n:]
		return n, nil
	}
	c.reads = c.reads[1:]
	return n, step.Err
}

// Write accepts up to the next scripted limit.
func (c *Channel) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	n := len(p)
	if len(c.writeLimits) > 0 {
		n = min(n, c.writeLimits[0])
		c.writeLimits = c.writeLimits[1:]
	}
	c.written = append(c.written, p[:n]...)
	return n, nil
}

// Written returns a copy of everything accepted by Write.
func (c *Channel) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

// Close marks the channel closed. Every call is counted.
func (c *Channel) Close() error {
	c.closeCalls.Add(1)
	if !c.closed.CompareAndSwap(false, true) {
		return api.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// CloseCalls reports how many times Close was invoked.
func (c *Channel) CloseCalls() int {
	return int(c.closeCalls.Load())
}

// EOF scripts an orderly close by the peer.
func (c *Channel) EOF() {
	c.ScriptRead(nil, io.EOF)
}
