// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Configuration, statistics and the platform multiplexer contract.

package reactor

// Config tunes a SelectorProvider.
type Config struct {
	InputWorkers  int // Workers running read callbacks
	OutputWorkers int // Workers running write callbacks
	MaxEvents     int // Readiness events fetched per wait

	// CPUAffinity pins the input loop thread to InputCPU and the output
	// loop thread to OutputCPU.
	CPUAffinity bool
	InputCPU    int
	OutputCPU   int
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		InputWorkers:  4,
		OutputWorkers: 4,
		MaxEvents:     256,
		InputCPU:      0,
		OutputCPU:     1,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.InputWorkers <= 0 {
		c.InputWorkers = d.InputWorkers
	}
	if c.OutputWorkers <= 0 {
		c.OutputWorkers = d.OutputWorkers
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = d.MaxEvents
	}
}

// DirectionStats describes one interest set.
type DirectionStats struct {
	Cycles     int64 // Returns from the readiness wait
	Dispatched int64 // Callbacks handed to the worker pool
	Registered int   // Channels with a callback entry
	Armed      int   // Channels with pending interest
	Workers    int
}

// Stats is a point-in-time snapshot of a SelectorProvider.
type Stats struct {
	Input  DirectionStats
	Output DirectionStats
	Closed bool
}

// readyEvent is one readiness report. gen identifies the arm that produced
// it, so an event left over from a closed channel is not mistaken for a
// later channel reusing the same descriptor.
type readyEvent struct {
	fd  int
	gen uint32
}

// multiplexer is one OS readiness set for a single direction.
//
// Only the owning loop calls wait. arm, remove and close are called under the
// direction's registration guard; wakeup may be called from any goroutine.
type multiplexer interface {
	// arm adds fd or re-enables it for one readiness event. gen is reported
	// back with that event.
	arm(fd int, gen uint32) error
	// remove drops fd from the set. Missing descriptors are not an error.
	remove(fd int) error
	// wait blocks until readiness or wakeup and stores ready descriptors in
	// ready, which must hold at least maxEvents entries. Wakeups are not
	// reported as ready descriptors.
	wait(ready []readyEvent) (int, error)
	// wakeup forces a blocked or upcoming wait to return.
	wakeup() error
	close() error
}
