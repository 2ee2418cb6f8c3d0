//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/momentics/clink/api"
)

func newMultiplexer(dir api.Direction, maxEvents int) (multiplexer, error) {
	return nil, fmt.Errorf("reactor: %s multiplexer: %w", dir, api.ErrNotSupported)
}
