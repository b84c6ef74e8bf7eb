package score

// Level is the qualitative band of a document risk score
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Band thresholds (inclusive lower bound of each band)
const (
	MediumThreshold = 20
	HighThreshold   = 50
)

// LevelFor maps a risk score to its level.
// Levels are never stored; call this wherever a level is shown.
func LevelFor(score int) Level {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (l Level) String() string {
	return string(l)
}
