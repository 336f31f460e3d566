package app

import (
	"testing"

	"certiflash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	catalog := testCatalog(t)
	ledger := domain.NewLedger(fixedNow)
	ledger.XP = 130
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"} {
		ledger.QuestionHistory[id] = domain.QuestionRecord{Correct: 1}
	}
	ledger.QuestionHistory["s1"] = domain.QuestionRecord{Correct: 6, Incorrect: 2}

	s := Summarize(catalog, ledger)

	assert.Equal(t, 2, s.Level)
	assert.Equal(t, 70, s.XPToNextLevel)
	require.Len(t, s.Modules, 6)
	assert.Equal(t, ModuleProgress{ModuleID: "core", Title: "SageMaker Core", Mastery: 80, Correct: 8, Total: 10, Unlocked: true, Tier: "large"}, s.Modules[0])
	assert.Equal(t, 60, s.Modules[1].Mastery)
	assert.Equal(t, "medium", s.Modules[1].Tier)
	assert.True(t, s.Modules[3].Unlocked, "130 XP opens the 100 XP gate")
	assert.Equal(t, 23, s.TotalMastery)

	require.Len(t, s.Strongest, 1)
	assert.Equal(t, "core", s.Strongest[0].ModuleID)
	require.Len(t, s.FocusAreas, 3)
	assert.Equal(t, []string{"hard", "locked", "empty"}, ids(s.FocusAreas))
	assert.Equal(t, []string{"first-xp"}, s.Badges)
}

func TestMasteryCanExceedHundred(t *testing.T) {
	ledger := domain.NewLedger(fixedNow)
	ledger.QuestionHistory["h1"] = domain.QuestionRecord{Correct: 25}

	s := Summarize(testCatalog(t), ledger)
	assert.Equal(t, 250, s.Modules[2].Mastery)
	assert.Equal(t, "hard", s.Strongest[0].ModuleID)
}

func TestBadges(t *testing.T) {
	ledger := domain.NewLedger(fixedNow)
	assert.Equal(t, []string{"first-xp"}, Badges(ledger))

	ledger.Streak = 7
	ledger.XP = 400
	assert.Equal(t, []string{"first-xp", "streak-7", "aws-expert"}, Badges(ledger))
}

func TestMasteryMessage(t *testing.T) {
	tests := map[int]string{
		0:   "Just getting started!",
		49:  "Just getting started!",
		50:  "Making progress!",
		75:  "Almost there!",
		90:  "Expert level!",
		120: "Expert level!",
	}
	for mastery, want := range tests {
		assert.Equal(t, want, MasteryMessage(mastery), "mastery %d", mastery)
	}
}

func ids(ps []ModuleProgress) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ModuleID
	}
	return out
}
