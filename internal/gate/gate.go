// Package gate implements the suspend/resume rendezvous between the single
// engine goroutine and the front-end bindings.
//
// The gate is a single-slot deferred-call mailbox plus a resume flag, both
// guarded by one mutex. The engine goroutine parks in EngineSuspend; front-end
// goroutines never block on the gate. A deferred call runs on the engine
// goroutine because it reads state that is only valid there; its delivery
// callback is handed to the binding's Executor so replies are written on the
// goroutine that owns the client connection.
package gate

import (
	"sync"
	"time"
)

// Gate coordinates one engine goroutine with any number of front-end
// goroutines. The zero value is not usable; call New.
type Gate struct {
	mu   sync.Mutex
	cond *sync.Cond

	// resume permits EngineSuspend to return. Reset to false at the start
	// of every suspension, so a resume issued while running is observed
	// only at the next suspension.
	resume bool

	// suspended is true while the engine goroutine is parked inside
	// EngineSuspend.
	suspended bool

	// Single-slot mailbox. Installing over a pending call overwrites it;
	// RequestDeferredCall reports the overwrite to the caller.
	call     func()
	delivery func()
	executor Executor
}

// New creates a gate.
func New() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// EngineSuspend parks the calling goroutine until a resume is requested.
// It must be called only by the engine goroutine, at a suspension point.
//
// Any pending deferred call is drained before a pending resume is honored:
// the call runs on this goroutine, its delivery is posted to the executor it
// was installed with, and the slot is cleared. The resume-flag check and the
// wait happen under one lock, so a wakeup between them cannot be lost.
func (g *Gate) EngineSuspend() {
	g.mu.Lock()
	g.resume = false
	g.suspended = true

	for {
		for g.call != nil {
			call, delivery, ex := g.call, g.delivery, g.executor
			g.call, g.delivery, g.executor = nil, nil, nil

			g.mu.Unlock()
			call()
			if delivery != nil {
				if ex == nil {
					ex = Direct{}
				}
				ex.Post(delivery)
			}
			g.mu.Lock()
		}
		if g.resume {
			break
		}
		g.cond.Wait()
	}

	g.suspended = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

// RequestResume permits the engine goroutine to return from its current or
// next suspension. Callable from any goroutine; idempotent. A resume issued
// while the engine is running has no effect until the next suspension.
func (g *Gate) RequestResume() {
	g.mu.Lock()
	g.resume = true
	g.cond.Broadcast()
	g.mu.Unlock()
}

// RequestDeferredCall installs call into the mailbox slot and wakes the
// engine goroutine so it executes the call inside its drain loop,
// immediately if it is already parked, otherwise at its next suspension.
//
// delivery, if non-nil, is posted to ex after the call has run. ex may be
// nil, in which case the delivery runs inline on the engine goroutine.
//
// Non-blocking: the call has not necessarily run when this returns. A second
// install before the first is drained overwrites it; the returned replaced
// flag reports that. Callers that need ordering must serialize their own
// deferred requests.
func (g *Gate) RequestDeferredCall(call, delivery func(), ex Executor) (replaced bool) {
	g.mu.Lock()
	replaced = g.call != nil
	g.call = call
	g.delivery = delivery
	g.executor = ex
	g.cond.Broadcast()
	g.mu.Unlock()
	return replaced
}

// Suspended reports whether the engine goroutine is currently parked.
func (g *Gate) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspended
}

// AwaitResume blocks until the engine goroutine is not parked, returning
// true. If it is still parked when timeout elapses, AwaitResume returns
// false. A timeout <= 0 waits indefinitely.
//
// The quit path uses this to confirm the engine observed its resume before
// teardown is requested.
func (g *Gate) AwaitResume(timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		t := time.AfterFunc(timeout, func() {
			g.mu.Lock()
			g.cond.Broadcast()
			g.mu.Unlock()
		})
		defer t.Stop()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.suspended {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false
		}
		g.cond.Wait()
	}
	return true
}
