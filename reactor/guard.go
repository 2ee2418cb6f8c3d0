// File: reactor/guard.go
// Author: momentics <momentics@gmail.com>

package reactor

import "sync"

// registrationGuard serializes interest-set mutation for one direction.
//
// busy is true while a caller mutates the set or the loop dispatches from it.
// The loop never enters the readiness wait while busy is held by a caller,
// because the caller wakes it before mutating and the loop parks in await.
type registrationGuard struct {
	mu   sync.Mutex
	cond *sync.Cond
	busy bool
}

func newRegistrationGuard() *registrationGuard {
	g := &registrationGuard{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// enter blocks until no one else holds the guard, then takes it.
func (g *registrationGuard) enter() {
	g.mu.Lock()
	for g.busy {
		g.cond.Wait()
	}
	g.busy = true
	g.mu.Unlock()
}

// leave releases the guard and wakes every waiter.
func (g *registrationGuard) leave() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

// await returns once no registration is in progress.
func (g *registrationGuard) await() {
	g.mu.Lock()
	for g.busy {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

func (g *registrationGuard) inProgress() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
