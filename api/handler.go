// File: api/handler.go
// Package api defines the listener contract used by receive and send operations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "github.com/momentics/clink/core/buffer"

// IoArgsEventListener receives the lifecycle hooks of one operation.
// After OnCompleted the listener owns args and should Release it.
type IoArgsEventListener interface {
	OnStarted(args *buffer.IoArgs)
	OnCompleted(args *buffer.IoArgs)
}

// IoArgsEventFuncs adapts plain functions to IoArgsEventListener. Nil fields are skipped.
type IoArgsEventFuncs struct {
	Started   func(args *buffer.IoArgs)
	Completed func(args *buffer.IoArgs)
}

// OnStarted calls Started when set.
func (f IoArgsEventFuncs) OnStarted(args *buffer.IoArgs) {
	if f.Started != nil {
		f.Started(args)
	}
}

// OnCompleted calls Completed when set.
func (f IoArgsEventFuncs) OnCompleted(args *buffer.IoArgs) {
	if f.Completed != nil {
		f.Completed(args)
	}
}
