package gate

import (
	"sync"
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

// suspendEngine parks a goroutine in EngineSuspend and returns a channel
// closed when the suspension ends.
func suspendEngine(t *testing.T, g *Gate) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		g.EngineSuspend()
		close(done)
	}()

	deadline := time.Now().Add(waitTimeout)
	for !g.Suspended() {
		if time.Now().After(deadline) {
			t.Fatal("engine goroutine never suspended")
		}
		time.Sleep(time.Millisecond)
	}
	return done
}

func waitClosed(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatal(msg)
	}
}

func TestResumeUnparksEngine(t *testing.T) {
	g := New()
	done := suspendEngine(t, g)

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")

	if g.Suspended() {
		t.Error("Suspended() = true after resume")
	}
}

func TestResumeWhileRunningIsNotBanked(t *testing.T) {
	g := New()

	// Resume issued while the engine is running must not carry over into
	// the next suspension.
	g.RequestResume()

	done := suspendEngine(t, g)
	select {
	case <-done:
		t.Fatal("suspension consumed a stale resume")
	case <-time.After(50 * time.Millisecond):
	}

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")
}

func TestDeferredCallRunsOnEngineBeforeResume(t *testing.T) {
	g := New()
	done := suspendEngine(t, g)

	var order []string
	var mu sync.Mutex
	delivered := make(chan struct{})

	g.RequestDeferredCall(
		func() {
			mu.Lock()
			order = append(order, "call")
			mu.Unlock()
		},
		func() {
			mu.Lock()
			order = append(order, "delivery")
			mu.Unlock()
			close(delivered)
		},
		Direct{},
	)

	waitClosed(t, delivered, "delivery never ran")

	// The engine must still be parked: a deferred call does not resume.
	select {
	case <-done:
		t.Fatal("deferred call resumed the engine")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "call" || order[1] != "delivery" {
		t.Errorf("order = %v, want [call delivery]", order)
	}

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")
}

func TestDeferredCallQueuedWhileRunning(t *testing.T) {
	g := New()

	ran := make(chan struct{})
	g.RequestDeferredCall(func() { close(ran) }, nil, nil)

	select {
	case <-ran:
		t.Fatal("deferred call ran before suspension")
	case <-time.After(50 * time.Millisecond):
	}

	done := suspendEngine(t, g)
	waitClosed(t, ran, "queued call never ran at suspension")

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")
}

func TestSecondDeferredCallOverwritesFirst(t *testing.T) {
	g := New()

	firstRan := false
	if replaced := g.RequestDeferredCall(func() { firstRan = true }, nil, nil); replaced {
		t.Error("first install reported replaced = true")
	}

	secondRan := make(chan struct{})
	if replaced := g.RequestDeferredCall(func() { close(secondRan) }, nil, nil); !replaced {
		t.Error("overwrite reported replaced = false")
	}

	done := suspendEngine(t, g)
	waitClosed(t, secondRan, "surviving call never ran")

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")

	if firstRan {
		t.Error("overwritten call ran")
	}
}

func TestDrainPrecedesResume(t *testing.T) {
	g := New()

	// Install a call and a resume before the engine suspends: the
	// suspension clears the stale resume but must still drain the call.
	ran := make(chan struct{})
	g.RequestDeferredCall(func() { close(ran) }, nil, nil)

	done := suspendEngine(t, g)
	waitClosed(t, ran, "pending call not drained at suspension")

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")
}

func TestAwaitResume(t *testing.T) {
	g := New()
	done := suspendEngine(t, g)

	if g.AwaitResume(50 * time.Millisecond) {
		t.Error("AwaitResume = true while engine parked")
	}

	g.RequestResume()
	waitClosed(t, done, "engine did not resume")

	if !g.AwaitResume(waitTimeout) {
		t.Error("AwaitResume = false after resume")
	}
}

func TestAwaitResumeNotSuspended(t *testing.T) {
	g := New()
	if !g.AwaitResume(10 * time.Millisecond) {
		t.Error("AwaitResume = false with no suspension in progress")
	}
}
