package ws

import "github.com/cory-johannsen/arena/internal/game/combat"

// Inbound message types.
const (
	TypeJoinRoom      = "joinRoom"
	TypeLeaveRoom     = "leaveRoom"
	TypeStartCombat   = "startCombat"
	TypePerformAction = "performAction"
)

// Outbound envelope types.
const (
	TypeCombatInitiated = "combatInitiated"
	TypeCombatUpdated   = "combatUpdated"
	TypeCombatEnded     = "combatEnded"
)

// Inbound is one client request. Fields beyond Type are set depending on
// the message type.
type Inbound struct {
	Type string `json:"type"`
	// RoomID and PlayerName accompany joinRoom.
	RoomID     string `json:"roomId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	// Class optionally selects a character class at join time.
	Class string `json:"class,omitempty"`
	// Action accompanies performAction.
	Action *combat.Intent `json:"action,omitempty"`
}

// Envelope is one server-to-client message carrying a combat snapshot.
type Envelope struct {
	Type   string         `json:"type"`
	RoomID string         `json:"roomId"`
	Combat *combat.Combat `json:"combat,omitempty"`
	Result combat.Outcome `json:"result,omitempty"`
}
