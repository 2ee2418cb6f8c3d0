// File: facade/iocontext.go
// Process-wide bootstrap for the I/O provider.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IoContext owns the single api.IoProvider shared by every connector in the
// process. It is installed with Setup().IoProvider(p).Start() and torn down
// with Close.

package facade

import (
	"sync"

	"github.com/momentics/clink/api"
	"github.com/momentics/clink/reactor"
)

// IoContext holds the installed provider.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type IoContext struct {
	provider api.IoProvider
}

var _ api.GracefulShutdown = (*IoContext)(nil)

var (
	mu      sync.Mutex
	current *IoContext
)

// Builder collects the components of an IoContext before Start.
type Builder struct {
	provider api.IoProvider
	config   *reactor.Config
}

// Setup begins building the process IoContext.
func Setup() *Builder {
	return &Builder{}
}

// IoProvider sets the provider to install.
func (b *Builder) IoProvider(p api.IoProvider) *Builder {
	b.provider = p
	return b
}

// ReactorConfig configures the SelectorProvider created by Start when no
// provider was given.
func (b *Builder) ReactorConfig(cfg *reactor.Config) *Builder {
	b.config = cfg
	return b
}

// Start installs the context. It fails with api.ErrAlreadyExists while
// another context is installed.
func (b *Builder) Start() (*IoContext, error) {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return nil, api.NewError(api.ErrCodeAlreadyExists, "io context already started")
	}
	p := b.provider
	if p == nil {
		sp, err := reactor.NewSelectorProvider(b.config)
		if err != nil {
			return nil, err
		}
		p = sp
	}
	current = &IoContext{provider: p}
	return current, nil
}

// Get returns the installed context, or nil.
func Get() *IoContext {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Provider returns the installed provider, or nil before Start.
func Provider() api.IoProvider {
	if c := Get(); c != nil {
		return c.provider
	}
	return nil
}

// Close closes the installed provider and uninstalls the context.
// Closing without a context is a no-op.
func Close() error {
	mu.Lock()
	c := current
	current = nil
	mu.Unlock()
	if c == nil {
		return nil
	}
	return c.provider.Close()
}

// Provider returns the provider held by c.
func (c *IoContext) Provider() api.IoProvider {
	return c.provider
}

// Shutdown closes c's provider and uninstalls c if it is still current.
func (c *IoContext) Shutdown() error {
	mu.Lock()
	if current == c {
		current = nil
	}
	mu.Unlock()
	return c.provider.Close()
}
