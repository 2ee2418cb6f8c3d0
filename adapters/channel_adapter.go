// File: adapters/channel_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SocketChannelAdapter turns readiness callbacks into receive/send completions.

package adapters

import (
	"errors"
	"io"
	"log"
	"sync/atomic"

	"github.com/momentics/clink/api"
	"github.com/momentics/clink/core/buffer"
	"github.com/momentics/clink/pool"
)

// receiveOp is the listener of the pending receive.
type receiveOp struct {
	listener api.IoArgsEventListener
}

// sendOp is the payload and listener of the pending send.
type sendOp struct {
	args     *buffer.IoArgs
	listener api.IoArgsEventListener
	started  atomic.Bool
}

// SocketChannelAdapter implements api.Receiver and api.Sender for one channel.
//
// Each ReceiveAsync or SendAsync arms interest once. The most recent listener
// wins when a call is repeated before the previous one completed.
type SocketChannelAdapter struct {
	channel  api.Channel
	provider api.IoProvider
	status   api.ChannelStatusListener
	pool     *pool.BytePool

	closed atomic.Bool
	recv   atomic.Pointer[receiveOp]
	send   atomic.Pointer[sendOp]

	handleInput  api.HandleFunc
	handleOutput api.HandleFunc

	bytesIn  atomic.Int64
	bytesOut atomic.Int64
}

var (
	_ api.Receiver = (*SocketChannelAdapter)(nil)
	_ api.Sender   = (*SocketChannelAdapter)(nil)
)

// NewSocketChannelAdapter switches ch to non-blocking mode and binds it to
// provider. status may be nil; p nil uses pool.Default().
func NewSocketChannelAdapter(ch api.Channel, provider api.IoProvider, status api.ChannelStatusListener, p *pool.BytePool) (*SocketChannelAdapter, error) {
	if ch == nil || provider == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "adapter needs a channel and a provider")
	}
	if err := ch.SetNonblocking(); err != nil {
		return nil, api.NewError(api.ErrCodeInternal, "set non-blocking").
			WithContext("fd", ch.Fd()).Wrap(err)
	}
	if p == nil {
		p = pool.Default()
	}
	a := &SocketChannelAdapter{
		channel:  ch,
		provider: provider,
		status:   status,
		pool:     p,
	}
	a.handleInput = a.onReadable
	a.handleOutput = a.onWritable
	return a, nil
}

// Channel returns the adapted channel.
func (a *SocketChannelAdapter) Channel() api.Channel {
	return a.channel
}

// IsClosed reports whether Close has run.
func (a *SocketChannelAdapter) IsClosed() bool {
	return a.closed.Load()
}

// BytesIn and BytesOut count payload moved through the adapter.
func (a *SocketChannelAdapter) BytesIn() int64  { return a.bytesIn.Load() }
func (a *SocketChannelAdapter) BytesOut() int64 { return a.bytesOut.Load() }

func (a *SocketChannelAdapter) errClosed() error {
	return api.NewError(api.ErrCodeClosed, "adapter closed").WithContext("fd", a.channel.Fd())
}

// ReceiveAsync arms read interest. The listener sees OnStarted with a fresh
// IoArgs and, once at least one byte arrived, OnCompleted with the same args.
// false means the provider refused the registration.
func (a *SocketChannelAdapter) ReceiveAsync(listener api.IoArgsEventListener) (bool, error) {
	if a.closed.Load() {
		return false, a.errClosed()
	}
	if listener == nil {
		return false, api.NewError(api.ErrCodeInvalidArgument, "nil listener").WithContext("fd", a.channel.Fd())
	}
	a.recv.Store(&receiveOp{listener: listener})
	return a.provider.RegisterInput(a.channel, a.handleInput), nil
}

// SendAsync arms write interest for args. The write may span several readiness
// events; OnCompleted fires once after the last byte was accepted.
func (a *SocketChannelAdapter) SendAsync(args *buffer.IoArgs, listener api.IoArgsEventListener) (bool, error) {
	if a.closed.Load() {
		return false, a.errClosed()
	}
	if args == nil || listener == nil {
		return false, api.NewError(api.ErrCodeInvalidArgument, "nil args or listener").WithContext("fd", a.channel.Fd())
	}
	a.send.Store(&sendOp{args: args, listener: listener})
	return a.provider.RegisterOutput(a.channel, a.handleOutput), nil
}

func (a *SocketChannelAdapter) onReadable() {
	if a.closed.Load() {
		return
	}
	op := a.recv.Load()
	if op == nil {
		return
	}

	args := buffer.NewIoArgs(a.pool)
	op.listener.OnStarted(args)
	n, err := args.ReadFrom(a.channel)
	if n > 0 {
		a.bytesIn.Add(n)
		op.listener.OnCompleted(args)
		if err != nil {
			a.closeOnError("read", err)
		}
		return
	}
	args.Release()
	a.closeOnError("read", err)
}

func (a *SocketChannelAdapter) onWritable() {
	if a.closed.Load() {
		return
	}
	op := a.send.Load()
	if op == nil {
		return
	}

	if op.started.CompareAndSwap(false, true) {
		op.listener.OnStarted(op.args)
	}
	n, err := op.args.WriteTo(a.channel)
	a.bytesOut.Add(n)
	if err != nil {
		a.closeOnError("write", err)
		return
	}
	if op.args.Remaining() > 0 {
		if !a.provider.RegisterOutput(a.channel, a.handleOutput) {
			a.Close()
		}
		return
	}
	if a.send.CompareAndSwap(op, nil) {
		op.listener.OnCompleted(op.args)
	}
}

// closeOnError closes the adapter; orderly shutdown by the peer is not logged.
func (a *SocketChannelAdapter) closeOnError(op string, err error) {
	if err != nil && !errors.Is(err, io.EOF) && !a.closed.Load() {
		log.Printf("[adapter] fd %d %s: %v", a.channel.Fd(), op, err)
	}
	a.Close()
}

// Close unregisters both directions, closes the channel and notifies the
// status listener. Only the first call has an effect.
func (a *SocketChannelAdapter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.provider.UnregisterInput(a.channel)
	a.provider.UnregisterOutput(a.channel)
	err := a.channel.Close()
	if errors.Is(err, api.ErrClosed) {
		err = nil
	}
	if a.status != nil {
		a.status.OnChannelClosed(a.channel)
	}
	return err
}
