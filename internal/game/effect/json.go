package effect

import "encoding/json"

// MarshalJSON encodes the set as the plain array of active effects, matching
// the wire snapshot shape.
func (s *Set) MarshalJSON() ([]byte, error) {
	if s == nil || s.effects == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.effects)
}

// UnmarshalJSON decodes an array of active effects, replacing the set's
// contents wholesale.
func (s *Set) UnmarshalJSON(data []byte) error {
	var effects []Active
	if err := json.Unmarshal(data, &effects); err != nil {
		return err
	}
	s.effects = effects
	return nil
}
