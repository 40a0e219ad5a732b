// Package combat implements the arena combat core: encounter state, the
// action resolver, and the time-based regeneration tick.
package combat

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arena/internal/game/entity"
)

// Outcome is the terminal result of an encounter.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
)

// Combat holds the live state of a single encounter in a room. The JSON form
// is the wire snapshot shape and round-trips exactly.
//
// Invariant: Log is append-only and ordered by resolution order; entries are
// never retracted or edited in place. Consumers identify new entries by
// comparing log length.
type Combat struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"roomId"`
	StartedAt time.Time        `json:"startTime"`
	Entities  []*entity.Entity `json:"entities"`
	Log       []LogEntry       `json:"log"`
	Active    bool             `json:"active"`
	Result    Outcome          `json:"result,omitempty"`
	EndedAt   *time.Time       `json:"endTime,omitempty"`
}

// LogEntry is one record in the combat log.
type LogEntry struct {
	Time      time.Time   `json:"time"`
	Message   string      `json:"message"`
	Actor     string      `json:"actor,omitempty"`
	ActorID   string      `json:"actorId,omitempty"`
	ActorType entity.Kind `json:"actorType,omitempty"`
	Action    ActionKind  `json:"action,omitempty"`
	Target    string      `json:"target,omitempty"`
	TargetID  string      `json:"targetId,omitempty"`
	Details   *Details    `json:"details,omitempty"`
	// Type is "defeat" for the standalone entries appended when an entity's
	// health reaches 0.
	Type       string      `json:"type,omitempty"`
	EntityID   string      `json:"entityId,omitempty"`
	EntityType entity.Kind `json:"entityType,omitempty"`
}

// New creates an active Combat for roomID with the given entities and an
// opening log entry.
//
// Precondition: entities must be non-empty.
// Postcondition: Returns an Active combat with a fresh unique ID.
func New(roomID string, entities []*entity.Entity, now time.Time) *Combat {
	return &Combat{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		StartedAt: now,
		Entities:  entities,
		Log: []LogEntry{{
			Time:    now,
			Message: "Combat has begun!",
		}},
		Active: true,
	}
}

// FindEntity returns the entity with the given id, or nil.
func (c *Combat) FindEntity(id string) *entity.Entity {
	for _, e := range c.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// AlivePlayers returns all player entities with Health > 0.
func (c *Combat) AlivePlayers() []*entity.Entity {
	return c.aliveOfKind(entity.KindPlayer)
}

// AliveMonsters returns all monster entities with Health > 0.
func (c *Combat) AliveMonsters() []*entity.Entity {
	return c.aliveOfKind(entity.KindMonster)
}

func (c *Combat) aliveOfKind(kind entity.Kind) []*entity.Entity {
	var alive []*entity.Entity
	for _, e := range c.Entities {
		if e.Kind == kind && e.Alive() {
			alive = append(alive, e)
		}
	}
	return alive
}

// AppendLog appends entry to the combat log.
//
// Postcondition: len(Log) is incremented by exactly 1; existing entries are
// untouched.
func (c *Combat) AppendLog(entry LogEntry) {
	c.Log = append(c.Log, entry)
}

// Snapshot returns a deep copy of the combat, safe to hand to broadcast
// consumers after the owning lock is released.
func (c *Combat) Snapshot() *Combat {
	cp := *c
	cp.Entities = make([]*entity.Entity, len(c.Entities))
	for i, e := range c.Entities {
		cp.Entities[i] = e.Clone()
	}
	cp.Log = make([]LogEntry, len(c.Log))
	copy(cp.Log, c.Log)
	if c.EndedAt != nil {
		t := *c.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
