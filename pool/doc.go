// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte slabs for receive buffers. BytePool recycles slabs through
// sync.Pool and counts gets, puts and fresh allocations.
package pool
