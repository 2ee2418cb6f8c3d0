// File: fake/provider.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/clink/api"
)

// Provider is an api.IoProvider that never polls. Tests trigger readiness
// explicitly with FireInput and FireOutput, which consume the interest the
// same way the real reactor does.
type Provider struct {
	mu     sync.Mutex
	input  map[api.Channel]api.HandleFunc
	output map[api.Channel]api.HandleFunc
	counts map[api.Direction]int
	refuse bool
	closed bool
}

var _ api.IoProvider = (*Provider)(nil)

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{
		input:  make(map[api.Channel]api.HandleFunc),
		output: make(map[api.Channel]api.HandleFunc),
		counts: make(map[api.Direction]int),
	}
}

// Refuse makes every following registration fail.
func (p *Provider) Refuse(refuse bool) {
	p.mu.Lock()
	p.refuse = refuse
	p.mu.Unlock()
}

func (p *Provider) set(dir api.Direction) map[api.Channel]api.HandleFunc {
	if dir == api.DirectionInput {
		return p.input
	}
	return p.output
}

func (p *Provider) register(dir api.Direction, ch api.Channel, cb api.HandleFunc) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch == nil || cb == nil || p.closed || p.refuse || !ch.IsOpen() {
		return false
	}
	p.set(dir)[ch] = cb
	p.counts[dir]++
	return true
}

// RegisterInput stores cb as the pending read callback of ch.
func (p *Provider) RegisterInput(ch api.Channel, cb api.HandleFunc) bool {
	return p.register(api.DirectionInput, ch, cb)
}

// RegisterOutput stores cb as the pending write callback of ch.
func (p *Provider) RegisterOutput(ch api.Channel, cb api.HandleFunc) bool {
	return p.register(api.DirectionOutput, ch, cb)
}

// UnregisterInput drops the pending read callback of ch.
func (p *Provider) UnregisterInput(ch api.Channel) {
	p.mu.Lock()
	delete(p.input, ch)
	p.mu.Unlock()
}

// UnregisterOutput drops the pending write callback of ch.
func (p *Provider) UnregisterOutput(ch api.Channel) {
	p.mu.Lock()
	delete(p.output, ch)
	p.mu.Unlock()
}

// Close drops every registration and refuses new ones.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	clear(p.input)
	clear(p.output)
	return nil
}

// Armed reports whether ch has pending interest in dir.
func (p *Provider) Armed(dir api.Direction, ch api.Channel) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.set(dir)[ch]
	return ok
}

// Registrations reports how many successful registrations dir has seen.
func (p *Provider) Registrations(dir api.Direction) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[dir]
}

// Fire consumes the interest of ch in dir and runs its callback on the
// calling goroutine. It reports whether a callback was pending.
func (p *Provider) Fire(dir api.Direction, ch api.Channel) bool {
	p.mu.Lock()
	cb, ok := p.set(dir)[ch]
	delete(p.set(dir), ch)
	p.mu.Unlock()
	if !ok {
		return false
	}
	cb()
	return true
}

// FireInput is Fire for the read direction.
func (p *Provider) FireInput(ch api.Channel) bool {
	return p.Fire(api.DirectionInput, ch)
}

// FireOutput is Fire for the write direction.
func (p *Provider) FireOutput(ch api.Channel) bool {
	return p.Fire(api.DirectionOutput, ch)
}
