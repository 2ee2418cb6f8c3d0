// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection.
//
// MetricsRegistry collects named values pushed by the reactor and the
// server. DebugProbes evaluates registered hooks lazily when a state dump
// is requested.
package control
