//go:build unix

// File: server/options.go
// Package server defines functional options for the chat server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/clink/api"
	"github.com/momentics/clink/control"
)

// Option customizes server initialization.
type Option func(*TCPServer)

// WithProvider shares an existing provider. The server will not close it.
func WithProvider(p api.IoProvider) Option {
	return func(s *TCPServer) {
		s.provider = p
	}
}

// WithMetrics publishes server and reactor metrics into m.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(s *TCPServer) {
		s.metrics = m
	}
}

// WithReceiveSize overrides Config.RecvSize.
func WithReceiveSize(n int) Option {
	return func(s *TCPServer) {
		if n > 0 {
			s.cfg.RecvSize = n
		}
	}
}
