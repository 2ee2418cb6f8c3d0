// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package api

import (
	"io"

	"github.com/momentics/clink/core/buffer"
)

// Channel is a non-blocking socket endpoint that can be registered with an IoProvider.
//
// Read and Write make a single attempt. When the socket is not ready they
// return (0, nil); Read returns io.EOF once the peer has closed its side.
type Channel interface {
	io.ReadWriteCloser

	// Fd returns the OS descriptor used as the registration key.
	Fd() int

	// IsOpen reports whether Close has not been called yet.
	IsOpen() bool

	// SetNonblocking switches the descriptor to non-blocking mode.
	SetNonblocking() error
}

// Receiver issues one-shot asynchronous receive operations.
type Receiver interface {
	io.Closer
	ReceiveAsync(listener IoArgsEventListener) (bool, error)
}

// Sender issues one-shot asynchronous send operations.
type Sender interface {
	io.Closer
	SendAsync(args *buffer.IoArgs, listener IoArgsEventListener) (bool, error)
}

// ChannelStatusListener is notified once when an adapter closes its channel.
type ChannelStatusListener interface {
	OnChannelClosed(ch Channel)
}

// ChannelStatusFunc adapts a function to ChannelStatusListener.
type ChannelStatusFunc func(ch Channel)

// OnChannelClosed calls f(ch).
func (f ChannelStatusFunc) OnChannelClosed(ch Channel) { f(ch) }
