// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte slab pool backing the I/O payload containers.

package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultSlabSize is the default receive size of the line protocol.
const DefaultSlabSize = 256

// BytePool hands out slabs of a single size. Safe for concurrent use.
type BytePool struct {
	pool sync.Pool
	size int

	gets   atomic.Int64
	puts   atomic.Int64
	allocs atomic.Int64
}

// NewBytePool creates a pool of slabs of the given size. size <= 0 uses DefaultSlabSize.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultSlabSize
	}
	b := &BytePool{size: size}
	b.pool.New = func() any {
		b.allocs.Add(1)
		buf := make([]byte, b.size)
		return &buf
	}
	return b
}

// Size returns the slab size.
func (b *BytePool) Size() int {
	return b.size
}

// GetBuffer returns a slab of len Size().
func (b *BytePool) GetBuffer() []byte {
	b.gets.Add(1)
	buf := b.pool.Get().(*[]byte)
	return (*buf)[:b.size]
}

// PutBuffer returns a slab to the pool. Slabs of a foreign size are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.puts.Add(1)
	buf = buf[:b.size]
	b.pool.Put(&buf)
}

// Stats returns allocation counters.
func (b *BytePool) Stats() map[string]int64 {
	gets := b.gets.Load()
	puts := b.puts.Load()
	return map[string]int64{
		"gets":   gets,
		"puts":   puts,
		"allocs": b.allocs.Load(),
		"in_use": gets - puts,
	}
}

var (
	defaultOnce sync.Once
	defaultPool *BytePool
)

// Default returns the process-wide pool of DefaultSlabSize slabs.
func Default() *BytePool {
	defaultOnce.Do(func() {
		defaultPool = NewBytePool(DefaultSlabSize)
	})
	return defaultPool
}
