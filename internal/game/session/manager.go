// Package session tracks connected players, room occupancy, and per-room
// combat status. It is the directory the orchestrator consults when
// starting encounters and routing broadcasts.
package session

import (
	"fmt"
	"sort"
	"sync"
)

// PlayerSession tracks a connected player's logical state. Transport-level
// connection handles live in the websocket adapter, keyed by UID.
type PlayerSession struct {
	// UID is the unique player identifier.
	UID string
	// Name is the display name shown in combat logs.
	Name string
	// Class is the character class ID chosen at join time; empty for
	// classless players.
	Class string
	// RoomID is the current room the player occupies.
	RoomID string
}

// Manager tracks all active player sessions, room occupancy, and which
// rooms have a live encounter. All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	players  map[string]*PlayerSession  // uid → session
	roomSets map[string]map[string]bool // roomID → set of UIDs
	inCombat map[string]bool            // roomID → live encounter
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{
		players:  make(map[string]*PlayerSession),
		roomSets: make(map[string]map[string]bool),
		inCombat: make(map[string]bool),
	}
}

// AddPlayer registers a new player session in the given room.
//
// Precondition: uid, name, and roomID must be non-empty.
// Postcondition: Returns the created PlayerSession, or an error if the UID
// is already registered.
func (m *Manager) AddPlayer(uid, name, class, roomID string) (*PlayerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[uid]; exists {
		return nil, fmt.Errorf("session: player %q already connected", uid)
	}

	sess := &PlayerSession{
		UID:    uid,
		Name:   name,
		Class:  class,
		RoomID: roomID,
	}
	m.players[uid] = sess
	if m.roomSets[roomID] == nil {
		m.roomSets[roomID] = make(map[string]bool)
	}
	m.roomSets[roomID][uid] = true
	return sess, nil
}

// RemovePlayer removes a player session and cleans up room occupancy. The
// room's combat status is untouched; ending encounters when a room empties
// is the orchestrator's call.
//
// Precondition: uid must be non-empty.
// Postcondition: The player is removed from all tracking. Returns an error
// if not found.
func (m *Manager) RemovePlayer(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[uid]
	if !exists {
		return fmt.Errorf("session: player %q not found", uid)
	}

	if rs, ok := m.roomSets[sess.RoomID]; ok {
		delete(rs, uid)
		if len(rs) == 0 {
			delete(m.roomSets, sess.RoomID)
		}
	}
	delete(m.players, uid)
	return nil
}

// MovePlayer moves a player from their current room to a new room.
//
// Precondition: uid and newRoomID must be non-empty.
// Postcondition: Returns the old room ID, or an error if the player is not
// found.
func (m *Manager) MovePlayer(uid, newRoomID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[uid]
	if !exists {
		return "", fmt.Errorf("session: player %q not found", uid)
	}

	oldRoomID := sess.RoomID
	if rs, ok := m.roomSets[oldRoomID]; ok {
		delete(rs, uid)
		if len(rs) == 0 {
			delete(m.roomSets, oldRoomID)
		}
	}

	sess.RoomID = newRoomID
	if m.roomSets[newRoomID] == nil {
		m.roomSets[newRoomID] = make(map[string]bool)
	}
	m.roomSets[newRoomID][uid] = true
	return oldRoomID, nil
}

// PlayersInRoom returns the sessions of all players in the given room,
// ordered by UID so entity construction is deterministic.
//
// Postcondition: Returns a slice of sessions (may be empty).
func (m *Manager) PlayersInRoom(roomID string) []*PlayerSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uids, ok := m.roomSets[roomID]
	if !ok {
		return nil
	}
	sessions := make([]*PlayerSession, 0, len(uids))
	for uid := range uids {
		if sess, ok := m.players[uid]; ok {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UID < sessions[j].UID })
	return sessions
}

// PlayerUIDsInRoom returns the UIDs of all players in the given room,
// sorted.
//
// Postcondition: Returns a slice of UIDs (may be empty).
func (m *Manager) PlayerUIDsInRoom(roomID string) []string {
	sessions := m.PlayersInRoom(roomID)
	uids := make([]string, len(sessions))
	for i, s := range sessions {
		uids[i] = s.UID
	}
	return uids
}

// GetPlayer returns the session for the given UID.
//
// Postcondition: Returns (session, true) if found, or (nil, false)
// otherwise.
func (m *Manager) GetPlayer(uid string) (*PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[uid]
	return sess, ok
}

// RoomOf returns the room the given player occupies, or "" if the player
// is not connected.
func (m *Manager) RoomOf(uid string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.players[uid]; ok {
		return sess.RoomID
	}
	return ""
}

// PlayerCount returns the total number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// IsRoomInCombat reports whether the room has a live encounter.
func (m *Manager) IsRoomInCombat(roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inCombat[roomID]
}

// SetRoomCombatStatus marks or clears the room's live-encounter flag.
//
// Postcondition: IsRoomInCombat(roomID) == in.
func (m *Manager) SetRoomCombatStatus(roomID string, in bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in {
		m.inCombat[roomID] = true
	} else {
		delete(m.inCombat, roomID)
	}
}
