// Package ruleset provides the static combat ruleset: character class and
// monster type definitions loaded from YAML, and ability score math.
package ruleset

// AbilityScores holds the six core ability scores.
type AbilityScores struct {
	Strength     int `yaml:"strength" json:"strength"`
	Dexterity    int `yaml:"dexterity" json:"dexterity"`
	Constitution int `yaml:"constitution" json:"constitution"`
	Intelligence int `yaml:"intelligence" json:"intelligence"`
	Wisdom       int `yaml:"wisdom" json:"wisdom"`
	Charisma     int `yaml:"charisma" json:"charisma"`
}

// Modifier computes the standard ability modifier using floor division:
// floor((score - 10) / 2).
//
// Postcondition: Returns floor((score - 10) / 2).
func Modifier(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// Proficiency is the flat proficiency bonus added to spell save DCs.
const Proficiency = 2
