// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the dual-multiplexer readiness reactor.
//
// A SelectorProvider owns two multiplexers, one for read interest and one for
// write interest, each driven by a loop goroutine locked to its own OS thread.
// Interest is one-shot: when a channel becomes ready its interest for that
// direction is cleared and its callback is handed to the direction's worker
// pool. Consumers re-register for the next event.
//
// Callers mutate an interest set only through the registration guard of that
// direction: they mark the guard busy, force the loop out of its readiness
// wait, mutate, then release the guard. A loop woken with nothing ready waits
// on the guard instead of spinning back into the multiplexer.
package reactor
