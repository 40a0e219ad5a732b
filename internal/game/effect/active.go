package effect

import "time"

// Active is one applied status effect on an entity.
//
// Invariant: Remaining > 0 while the effect is held in a Set; Tick prunes
// entries the moment they reach 0.
type Active struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Magnitude int       `json:"magnitude"` // signed; debuffs carry negative magnitudes
	Remaining int       `json:"remainingDuration"`
	AppliedAt time.Time `json:"appliedAt"`
}

// Set tracks all effects currently applied to one entity, in application order.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	effects []Active
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Apply appends an effect to the set. Re-applying a kind does not merge;
// each application is tracked and expires independently.
//
// Precondition: a.Remaining must be > 0.
func (s *Set) Apply(a Active) {
	s.effects = append(s.effects, a)
}

// Remove deletes every effect with the given id. No-op when absent.
func (s *Set) Remove(id string) {
	kept := s.effects[:0]
	for _, a := range s.effects {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.effects = kept
}

// Tick decrements every effect's Remaining by 1 and prunes non-positive
// entries, returning the kinds that expired this tick in order.
//
// Postcondition: every remaining effect has Remaining > 0.
func (s *Set) Tick() []string {
	var expired []string
	kept := s.effects[:0]
	for _, a := range s.effects {
		a.Remaining--
		if a.Remaining <= 0 {
			expired = append(expired, a.Kind)
			continue
		}
		kept = append(kept, a)
	}
	s.effects = kept
	return expired
}

// Has reports whether any effect of the given kind is active.
func (s *Set) Has(kind string) bool {
	for _, a := range s.effects {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Len returns the number of active effects.
func (s *Set) Len() int { return len(s.effects) }

// All returns a copy of the active effects in application order.
func (s *Set) All() []Active {
	out := make([]Active, len(s.effects))
	copy(out, s.effects)
	return out
}

// Replace discards the current contents and installs effects wholesale.
// Used by authoritative snapshot overwrites.
func (s *Set) Replace(effects []Active) {
	s.effects = make([]Active, len(effects))
	copy(s.effects, effects)
}
