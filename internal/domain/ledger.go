package domain

import (
	"math"
	"time"
)

const (
	// StarterTokens is granted when a ledger is first created.
	StarterTokens = 10
	// XPPerLevel is the XP span of one level.
	XPPerLevel = 100
	// MasteryFloor is the minimum denominator of the mastery ratio.
	MasteryFloor = 10
)

// NewLedger returns the record created on a user's first access.
func NewLedger(now time.Time) Ledger {
	return Ledger{
		XP:               0,
		Streak:           0,
		Tokens:           StarterTokens,
		Level:            1,
		CompletedModules: []string{},
		LastActive:       now,
		QuestionHistory:  map[string]QuestionRecord{},
	}
}

// Clone returns a copy that shares no maps or slices with l.
func (l Ledger) Clone() Ledger {
	out := l
	out.CompletedModules = append([]string{}, l.CompletedModules...)
	out.QuestionHistory = make(map[string]QuestionRecord, len(l.QuestionHistory))
	for id, rec := range l.QuestionHistory {
		out.QuestionHistory[id] = rec
	}
	return out
}

// LevelForXP is floor(xp/100)+1.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel is the XP still needed to reach the next level.
func XPToNextLevel(l Ledger) int {
	return XPPerLevel - l.XP%XPPerLevel
}

// IsModuleUnlocked reports whether the ledger XP meets the module gate (inclusive).
func IsModuleUnlocked(m Module, l Ledger) bool {
	return l.XP >= m.RequiredXP
}

// XPForDifficulty is the award for a correct answer.
func XPForDifficulty(d Difficulty) int {
	switch d {
	case DifficultyHard:
		return 15
	case DifficultyMedium:
		return 10
	default:
		return 5
	}
}

// ModuleMastery carries the numbers behind a mastery percentage.
type ModuleMastery struct {
	Correct int
	Total   int
	Percent int
}

// MasteryForModule computes the mastery percentage for a module from the ledger history.
// The denominator never drops below MasteryFloor so one or two lucky answers do not read as 100%.
func MasteryForModule(moduleID string, l Ledger, c Catalog) ModuleMastery {
	answered, correct := 0, 0
	for id, rec := range l.QuestionHistory {
		q, err := c.Question(id)
		if err != nil || q.ModuleID != moduleID {
			continue
		}
		answered++
		correct += rec.Correct
	}
	total := answered
	if total < MasteryFloor {
		total = MasteryFloor
	}
	return ModuleMastery{
		Correct: correct,
		Total:   total,
		Percent: int(math.Round(100 * float64(correct) / float64(total))),
	}
}
