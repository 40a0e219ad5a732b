package combat

// ActionKind identifies what an entity intends to do.
// The zero value (empty string) is intentionally invalid.
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionCast   ActionKind = "cast"
	ActionDefend ActionKind = "defend"
)

// Intent is one inbound action request, submitted by exactly one acting
// entity per call.
type Intent struct {
	Kind     ActionKind `json:"type"`
	SpellID  string     `json:"spellType,omitempty"`
	TargetID string     `json:"targetId"`
}
