package effect

// StatBonus returns the signed sum of magnitudes of all active effects in s
// whose definition targets stat. Effects of unregistered kinds contribute
// nothing.
//
// Precondition: s and reg must be non-nil.
func StatBonus(s *Set, reg *Registry, stat Stat) int {
	total := 0
	for _, a := range s.effects {
		def, ok := reg.Get(a.Kind)
		if !ok {
			continue
		}
		if def.Stat == stat {
			total += a.Magnitude
		}
	}
	return total
}
