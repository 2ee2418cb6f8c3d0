// File: core/buffer/ioargs.go
// Author: momentics <momentics@gmail.com>
//
// IoArgs is the payload container handed to channel adapters. Each ReadFrom or
// WriteTo call makes exactly one attempt against the underlying channel, which
// keeps a single readiness event mapped to a single system call.

package buffer

import (
	"io"

	"github.com/momentics/clink/pool"
)

// IoArgs holds bytes read from, or pending for, a channel.
//
// Layout: buf[off:end] is the unconsumed payload, buf[end:limit] is free space
// for the next read.
type IoArgs struct {
	buf    []byte
	off    int
	end    int
	limit  int
	pool   *pool.BytePool
	pooled bool
}

// NewIoArgs allocates a container from p, or from pool.Default() when p is nil.
func NewIoArgs(p *pool.BytePool) *IoArgs {
	if p == nil {
		p = pool.Default()
	}
	buf := p.GetBuffer()
	return &IoArgs{
		buf:    buf,
		limit:  len(buf),
		pool:   p,
		pooled: true,
	}
}

// NewIoArgsWith wraps data for sending. The slice is not copied.
func NewIoArgsWith(data []byte) *IoArgs {
	return &IoArgs{
		buf:   data,
		end:   len(data),
		limit: len(data),
	}
}

// Capacity is the number of bytes the container can hold.
func (a *IoArgs) Capacity() int {
	return len(a.buf)
}

// SetLimit caps how many bytes reads may fill. Values outside [end, Capacity]
// are clamped.
func (a *IoArgs) SetLimit(n int) {
	if n > len(a.buf) {
		n = len(a.buf)
	}
	if n < a.end {
		n = a.end
	}
	a.limit = n
}

// Load replaces the content with a copy of p, growing past the slab when needed.
func (a *IoArgs) Load(p []byte) {
	if len(p) > len(a.buf) {
		a.release()
		a.buf = make([]byte, len(p))
	}
	a.off = 0
	a.end = copy(a.buf, p)
	a.limit = len(a.buf)
}

// LoadString is Load for strings.
func (a *IoArgs) LoadString(s string) {
	a.Load([]byte(s))
}

// ReadFrom makes one read attempt into the free space and returns the bytes
// consumed. A full container reads nothing.
func (a *IoArgs) ReadFrom(r io.Reader) (int64, error) {
	if a.end >= a.limit {
		return 0, nil
	}
	n, err := r.Read(a.buf[a.end:a.limit])
	if n > 0 {
		a.end += n
	}
	return int64(n), err
}

// WriteTo makes one write attempt of the unconsumed payload and returns the
// bytes produced.
func (a *IoArgs) WriteTo(w io.Writer) (int64, error) {
	if a.off >= a.end {
		return 0, nil
	}
	n, err := w.Write(a.buf[a.off:a.end])
	if n > 0 {
		a.off += n
	}
	return int64(n), err
}

// Remaining is the number of payload bytes not yet written.
func (a *IoArgs) Remaining() int {
	return a.end - a.off
}

// Bytes returns the unconsumed payload. The slice aliases the container.
func (a *IoArgs) Bytes() []byte {
	return a.buf[a.off:a.end]
}

// String returns the unconsumed payload as a string.
func (a *IoArgs) String() string {
	return string(a.buf[a.off:a.end])
}

// Release returns the slab to its pool. The container must not be used afterwards.
func (a *IoArgs) Release() {
	a.release()
	a.buf = nil
	a.off, a.end, a.limit = 0, 0, 0
}

func (a *IoArgs) release() {
	if a.pooled && a.buf != nil {
		a.pool.PutBuffer(a.buf)
	}
	a.pooled = false
}
