package combat

import (
	"sync"
	"time"
)

// DeferredTimer fires a callback after a configurable duration unless
// stopped. The orchestrator uses one for the end-of-combat grace delay and
// one for retention cleanup. It is safe for concurrent use.
type DeferredTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDeferredTimer creates and starts a timer that calls onFire after
// duration. onFire runs in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: Returns a running DeferredTimer; onFire will be called
// unless Stop is called first.
func NewDeferredTimer(duration time.Duration, onFire func()) *DeferredTimer {
	dt := &DeferredTimer{}
	dt.timer = time.AfterFunc(duration, func() {
		dt.mu.Lock()
		stopped := dt.stopped
		dt.mu.Unlock()
		if !stopped {
			onFire()
		}
	})
	return dt
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns.
func (dt *DeferredTimer) Stop() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.stopped = true
	dt.timer.Stop()
}
