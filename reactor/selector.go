// File: reactor/selector.go
// Author: momentics <momentics@gmail.com>
//
// SelectorProvider: two interest sets, two loop threads, two worker pools.

package reactor

import (
	"log"
	"runtime"
	"sync/atomic"

	"github.com/momentics/clink/affinity"
	"github.com/momentics/clink/api"
	"github.com/momentics/clink/control"
	"github.com/momentics/clink/internal/concurrency"
)

// registration is the callback slot of one channel in one direction.
type registration struct {
	channel  api.Channel
	callback api.HandleFunc
	armed    bool
	gen      uint32 // generation of the pending arm
}

// selectionSet is everything owned by one direction.
type selectionSet struct {
	dir   api.Direction
	mux   multiplexer
	guard *registrationGuard
	regs  map[int]*registration // keyed by fd, guarded by guard
	gen   uint32                // last arm generation, guarded by guard
	pool  *concurrency.Executor
	ready []readyEvent // loop-owned
	cpu   int          // loop thread affinity, -1 for none
	done  chan struct{}

	cycles     atomic.Int64
	dispatched atomic.Int64
}

func newSelectionSet(dir api.Direction, workers, maxEvents, cpu int) (*selectionSet, error) {
	mux, err := newMultiplexer(dir, maxEvents)
	if err != nil {
		return nil, err
	}
	return &selectionSet{
		dir:   dir,
		mux:   mux,
		guard: newRegistrationGuard(),
		regs:  make(map[int]*registration),
		pool:  concurrency.NewExecutor(dir.String(), workers),
		ready: make([]readyEvent, maxEvents),
		cpu:   cpu,
		done:  make(chan struct{}),
	}, nil
}

// SelectorProvider implements api.IoProvider on top of two multiplexers.
type SelectorProvider struct {
	closed atomic.Bool
	input  *selectionSet
	output *selectionSet
}

var _ api.IoProvider = (*SelectorProvider)(nil)

// NewSelectorProvider creates both multiplexers and starts both loops.
// A nil cfg uses DefaultConfig.
func NewSelectorProvider(cfg *Config) (*SelectorProvider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.normalize()

	inCPU, outCPU := -1, -1
	if c.CPUAffinity {
		inCPU, outCPU = c.InputCPU, c.OutputCPU
	}
	in, err := newSelectionSet(api.DirectionInput, c.InputWorkers, c.MaxEvents, inCPU)
	if err != nil {
		return nil, err
	}
	out, err := newSelectionSet(api.DirectionOutput, c.OutputWorkers, c.MaxEvents, outCPU)
	if err != nil {
		in.pool.Close()
		in.mux.close()
		return nil, err
	}

	p := &SelectorProvider{input: in, output: out}
	go p.loop(in)
	go p.loop(out)
	return p, nil
}

// RegisterInput arms read interest for ch.
func (p *SelectorProvider) RegisterInput(ch api.Channel, cb api.HandleFunc) bool {
	return p.register(p.input, ch, cb)
}

// RegisterOutput arms write interest for ch.
func (p *SelectorProvider) RegisterOutput(ch api.Channel, cb api.HandleFunc) bool {
	return p.register(p.output, ch, cb)
}

// UnregisterInput removes ch from the read set.
func (p *SelectorProvider) UnregisterInput(ch api.Channel) {
	p.unregister(p.input, ch)
}

// UnregisterOutput removes ch from the write set.
func (p *SelectorProvider) UnregisterOutput(ch api.Channel) {
	p.unregister(p.output, ch)
}

// Close shuts down both worker pools, drops every registration, stops both
// loops and releases the multiplexers. Only the first call has an effect.
// Callbacks already running are not interrupted.
func (p *SelectorProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	sets := p.sets()
	for _, s := range sets {
		s.pool.Close()
	}
	for _, s := range sets {
		s.guard.enter()
		clear(s.regs)
		if err := s.mux.wakeup(); err != nil {
			log.Printf("[reactor] %s wakeup on close: %v", s.dir, err)
		}
		s.guard.leave()
	}
	for _, s := range sets {
		<-s.done
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (p *SelectorProvider) IsClosed() bool {
	return p.closed.Load()
}

// Stats returns a snapshot of both interest sets.
func (p *SelectorProvider) Stats() Stats {
	return Stats{
		Input:  p.input.stats(),
		Output: p.output.stats(),
		Closed: p.closed.Load(),
	}
}

// Publish copies Stats into m under the "reactor." prefix.
func (p *SelectorProvider) Publish(m *control.MetricsRegistry) {
	st := p.Stats()
	for _, d := range []struct {
		name string
		s    DirectionStats
	}{{"input", st.Input}, {"output", st.Output}} {
		m.Set("reactor."+d.name+".cycles", d.s.Cycles)
		m.Set("reactor."+d.name+".dispatched", d.s.Dispatched)
		m.Set("reactor."+d.name+".registered", d.s.Registered)
		m.Set("reactor."+d.name+".armed", d.s.Armed)
		m.Set("reactor."+d.name+".workers", d.s.Workers)
	}
	m.Set("reactor.closed", st.Closed)
}

func (p *SelectorProvider) sets() []*selectionSet {
	return []*selectionSet{p.input, p.output}
}

func (p *SelectorProvider) register(s *selectionSet, ch api.Channel, cb api.HandleFunc) bool {
	if ch == nil || cb == nil || p.closed.Load() || !ch.IsOpen() {
		return false
	}

	s.guard.enter()
	defer s.guard.leave()
	if p.closed.Load() {
		return false
	}
	if err := s.mux.wakeup(); err != nil {
		log.Printf("[reactor] %s wakeup: %v", s.dir, err)
	}

	fd := ch.Fd()
	reg, ok := s.regs[fd]
	if ok && reg.channel == ch {
		reg.callback = cb
		if reg.armed {
			return true
		}
	} else {
		// a different channel may have left a stale entry on a reused fd
		reg = &registration{channel: ch, callback: cb}
	}

	s.gen++
	if err := s.mux.arm(fd, s.gen); err != nil {
		delete(s.regs, fd)
		return false
	}
	reg.armed = true
	reg.gen = s.gen
	s.regs[fd] = reg
	return true
}

func (p *SelectorProvider) unregister(s *selectionSet, ch api.Channel) {
	if ch == nil || p.closed.Load() {
		return
	}

	s.guard.enter()
	defer s.guard.leave()
	if p.closed.Load() {
		return
	}
	if err := s.mux.wakeup(); err != nil {
		log.Printf("[reactor] %s wakeup: %v", s.dir, err)
	}

	fd := ch.Fd()
	reg, ok := s.regs[fd]
	if !ok || reg.channel != ch {
		return
	}
	delete(s.regs, fd)
	if err := s.mux.remove(fd); err != nil {
		log.Printf("[reactor] %s unregister: %v", s.dir, err)
	}
}

// loop is the WAITING -> DISPATCHING cycle of one direction.
func (p *SelectorProvider) loop(s *selectionSet) {
	runtime.LockOSThread()
	if !s.pin() {
		defer runtime.UnlockOSThread()
	}
	defer close(s.done)
	defer s.release()

	for !p.closed.Load() {
		n, err := s.mux.wait(s.ready)
		s.cycles.Add(1)
		if err != nil {
			if !p.closed.Load() {
				log.Printf("[reactor] %s select: %v", s.dir, err)
			}
			continue
		}
		if n == 0 {
			// woken to let a registration through, or spuriously
			s.guard.await()
			continue
		}

		s.guard.enter()
		for _, ev := range s.ready[:n] {
			s.handleSelection(ev)
		}
		s.guard.leave()
	}
}

// pin applies the configured affinity to the locked loop thread. A pinned
// thread is never handed back to the scheduler and exits with the loop.
func (s *selectionSet) pin() bool {
	if s.cpu < 0 {
		return false
	}
	if err := affinity.SetAffinity(s.cpu); err != nil {
		log.Printf("[reactor] %s pin to cpu %d: %v", s.dir, s.cpu, err)
		return false
	}
	return true
}

// handleSelection clears this direction's interest and dispatches the callback.
// Events from an earlier arm of the descriptor are dropped. Runs under the guard.
func (s *selectionSet) handleSelection(ev readyEvent) {
	reg, ok := s.regs[ev.fd]
	if !ok || !reg.armed || reg.gen != ev.gen {
		return
	}
	// EPOLLONESHOT already disarmed the descriptor in the kernel
	reg.armed = false
	if !reg.channel.IsOpen() {
		delete(s.regs, ev.fd)
		if err := s.mux.remove(ev.fd); err != nil {
			log.Printf("[reactor] %s remove closed: %v", s.dir, err)
		}
		return
	}
	if err := s.pool.Submit(concurrency.TaskFunc(reg.callback)); err == nil {
		s.dispatched.Add(1)
	}
}

// release closes the multiplexer once no caller can be mutating it.
func (s *selectionSet) release() {
	s.guard.enter()
	defer s.guard.leave()
	if err := s.mux.close(); err != nil {
		log.Printf("[reactor] %s release: %v", s.dir, err)
	}
}

func (s *selectionSet) stats() DirectionStats {
	s.guard.enter()
	registered := len(s.regs)
	armed := 0
	for _, reg := range s.regs {
		if reg.armed {
			armed++
		}
	}
	s.guard.leave()
	return DirectionStats{
		Cycles:     s.cycles.Load(),
		Dispatched: s.dispatched.Load(),
		Registered: registered,
		Armed:      armed,
		Workers:    s.pool.NumWorkers(),
	}
}
