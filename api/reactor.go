// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness reactor that multiplexes
// channel read and write interest across dedicated loop threads.

package api

// Direction selects the interest set a registration belongs to.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// HandleFunc is a readiness callback. It runs on a worker goroutine of the
// direction's dispatch pool, never on the loop thread.
type HandleFunc func()

// IoProvider registers one-shot readiness interest for channels.
//
// A registration fires at most once; the consumer re-registers to receive the
// next event. Registering again for the same channel and direction replaces
// the callback instead of adding a second entry.
type IoProvider interface {
	// RegisterInput arms read interest. It returns false if the channel is
	// no longer valid or the provider is closed.
	RegisterInput(ch Channel, cb HandleFunc) bool

	// RegisterOutput arms write interest, symmetric to RegisterInput.
	RegisterOutput(ch Channel, cb HandleFunc) bool

	// UnregisterInput drops the channel from the read set. No-op when absent.
	UnregisterInput(ch Channel)

	// UnregisterOutput drops the channel from the write set. No-op when absent.
	UnregisterOutput(ch Channel)

	// Close stops both loops and releases the multiplexers. Idempotent.
	Close() error
}
