package gate

// Executor is the delivery target for a deferred call's reply callback.
//
// The network binding posts deliveries to the goroutine that owns its client
// connection; the console binding has no thread affinity and runs them in
// place. Post must not block the engine goroutine indefinitely: an executor
// whose loop is gone drops the callback instead.
type Executor interface {
	// Post schedules fn on the executor's goroutine.
	Post(fn func())
}

// Direct is an Executor that runs callbacks inline on the calling goroutine.
type Direct struct{}

// Post runs fn immediately.
func (Direct) Post(fn func()) { fn() }
