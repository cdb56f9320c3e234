package persona

import "nudge/internal/opportunity"

// PolicyInput is what a frequency policy sees about the current moment.
type PolicyInput struct {
	Score   int
	Level   opportunity.Level
	Daytime bool
}

// PolicyRule decides whether a moment clears a frequency policy.
type PolicyRule func(in PolicyInput) bool

// Rules is the policy→rule lookup table.
var Rules = map[PolicyName]PolicyRule{
	// Only excellent moments.
	PolicyMinimal: func(in PolicyInput) bool {
		return in.Level == opportunity.LevelExcellent
	},

	// Good or excellent.
	PolicyConservative: func(in PolicyInput) bool {
		return in.Level == opportunity.LevelGood || in.Level == opportunity.LevelExcellent
	},

	// Anything but poor.
	PolicyBalanced: func(in PolicyInput) bool {
		return in.Level != opportunity.LevelPoor
	},

	// Score floor.
	PolicyModerate: func(in PolicyInput) bool {
		return in.Score >= 25
	},

	// Excellent always; good during daytime; otherwise a score floor.
	PolicyAdaptive: func(in PolicyInput) bool {
		if in.Level == opportunity.LevelExcellent {
			return true
		}
		if in.Level == opportunity.LevelGood && in.Daytime {
			return true
		}
		return in.Score >= 40
	},

	// Daytime only, with a score floor.
	PolicyOnboarding: func(in PolicyInput) bool {
		return in.Daytime && in.Score >= 30
	},
}

// Allows reports whether the named policy clears the moment. Unknown
// policies reject.
func Allows(name PolicyName, in PolicyInput) bool {
	rule, ok := Rules[name]
	if !ok {
		return false
	}
	return rule(in)
}
