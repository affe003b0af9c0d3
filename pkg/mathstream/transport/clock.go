package transport

import "time"

// Timer is a cancellable scheduled callback handle.
type Timer interface {
	// Stop cancels the timer. Returns false if it already fired or was
	// already stopped.
	Stop() bool
}

// Clock schedules callbacks. The reconnect delay and the keepalive
// heartbeat both run through it, so tests can substitute a fake and fire
// timers deterministically.
type Clock interface {
	// AfterFunc runs f in its own goroutine after duration d.
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock schedules with the runtime timers.
var SystemClock Clock = systemClock{}
