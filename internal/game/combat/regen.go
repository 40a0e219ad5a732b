package combat

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/arena/internal/game/effect"
)

// RegenTick advances time-based state for every entity in cbt: fractional
// action points accrued since the entity last acted are credited to the
// living, and status-effect durations are decremented with expired effects
// pruned and logged. It reports whether anything changed, which drives the
// decision to broadcast a fresh snapshot.
//
// Action points accrue continuously at one per RechargeMs of elapsed time,
// so clients see the partial fill between whole points. Each credit moves
// LastAction to now; only accrual past the cap is discarded.
//
// Precondition: reg must be non-nil.
func RegenTick(cbt *Combat, reg *effect.Registry, now time.Time) bool {
	changed := false
	for _, e := range cbt.Entities {
		if e.Alive() && e.RechargeMs > 0 && e.ActionPoints < float64(e.MaxActionPoints) {
			elapsed := now.Sub(e.LastAction).Milliseconds()
			if gained := float64(elapsed) / float64(e.RechargeMs); gained > 0 && e.GainActionPoints(gained) {
				e.LastAction = now
				changed = true
			}
		}

		if e.Effects == nil {
			continue
		}
		for _, kind := range e.Effects.Tick() {
			name := kind
			if def, ok := reg.Get(kind); ok {
				name = def.Name
			}
			cbt.AppendLog(LogEntry{
				Time:       now,
				Message:    fmt.Sprintf("The %s on %s wears off.", name, e.Name),
				Type:       "effectExpired",
				EntityID:   e.ID,
				EntityType: e.Kind,
			})
			changed = true
		}
	}
	return changed
}
