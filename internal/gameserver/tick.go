package gameserver

import (
	"context"
	"sync"
	"time"
)

// RoomTickManager runs a periodic tick for each room with a live encounter.
// Each room's tick callback is invoked sequentially within the manager's
// goroutine.
//
// Invariant: all callbacks are invoked at most once per tick interval.
type RoomTickManager struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]func()
}

// NewRoomTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewRoomTickManager(interval time.Duration) *RoomTickManager {
	if interval <= 0 {
		panic("gameserver.NewRoomTickManager: interval must be > 0")
	}
	return &RoomTickManager{
		interval: interval,
		ticks:    make(map[string]func()),
	}
}

// RegisterTick registers a callback for roomID. Replaces any existing
// callback.
func (r *RoomTickManager) RegisterTick(roomID string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks[roomID] = fn
}

// Unregister removes the tick callback for roomID.
func (r *RoomTickManager) Unregister(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ticks, roomID)
}

// Start begins the tick loop. Runs until ctx is cancelled.
//
// Postcondition: all registered tick callbacks are invoked once per
// interval.
func (r *RoomTickManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.mu.Lock()
				callbacks := make(map[string]func(), len(r.ticks))
				for k, v := range r.ticks {
					callbacks[k] = v
				}
				r.mu.Unlock()
				for _, fn := range callbacks {
					fn()
				}
			}
		}
	}()
}
