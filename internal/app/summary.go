package app

import (
	"math"
	"sort"

	"certiflash/internal/domain"
)

const (
	strongMastery = 75
	focusMastery  = 50
	topAreas      = 3
)

// ModuleProgress is one module's standing for the progress dashboard.
type ModuleProgress struct {
	ModuleID string `json:"moduleId"`
	Title    string `json:"title"`
	Mastery  int    `json:"mastery"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Unlocked bool   `json:"unlocked"`
	Tier     string `json:"tier"`
}

// Summary aggregates ledger-derived statistics.
type Summary struct {
	XP            int              `json:"xp"`
	Level         int              `json:"level"`
	XPToNextLevel int              `json:"xpToNextLevel"`
	Tokens        int              `json:"tokens"`
	Streak        int              `json:"streak"`
	TotalMastery  int              `json:"totalMastery"`
	Modules       []ModuleProgress `json:"modules"`
	Strongest     []ModuleProgress `json:"strongest"`
	FocusAreas    []ModuleProgress `json:"focusAreas"`
	Badges        []string         `json:"badges"`
}

// Summarize derives dashboard statistics from the ledger and catalog.
func Summarize(catalog domain.Catalog, ledger domain.Ledger) Summary {
	modules := catalog.Modules()
	out := Summary{
		XP:            ledger.XP,
		Level:         domain.LevelForXP(ledger.XP),
		XPToNextLevel: domain.XPToNextLevel(ledger),
		Tokens:        ledger.Tokens,
		Streak:        ledger.Streak,
		Modules:       make([]ModuleProgress, 0, len(modules)),
		Badges:        Badges(ledger),
	}

	sum := 0
	for _, m := range modules {
		mastery := domain.MasteryForModule(m.ID, ledger, catalog)
		out.Modules = append(out.Modules, ModuleProgress{
			ModuleID: m.ID,
			Title:    m.Title,
			Mastery:  mastery.Percent,
			Correct:  mastery.Correct,
			Total:    mastery.Total,
			Unlocked: domain.IsModuleUnlocked(m, ledger),
			Tier:     tierFor(mastery.Percent),
		})
		sum += mastery.Percent
	}
	if len(modules) > 0 {
		out.TotalMastery = int(math.Round(float64(sum) / float64(len(modules))))
	}

	out.Strongest = pick(out.Modules, func(p ModuleProgress) bool { return p.Mastery >= strongMastery }, func(a, b ModuleProgress) bool {
		return a.Mastery > b.Mastery
	})
	out.FocusAreas = pick(out.Modules, func(p ModuleProgress) bool { return p.Mastery < focusMastery }, func(a, b ModuleProgress) bool {
		return a.Mastery < b.Mastery
	})
	return out
}

// Badges lists the achievement badges a ledger has earned.
func Badges(ledger domain.Ledger) []string {
	badges := []string{"first-xp"}
	if ledger.Streak >= 7 {
		badges = append(badges, "streak-7")
	}
	if domain.LevelForXP(ledger.XP) >= 5 {
		badges = append(badges, "aws-expert")
	}
	return badges
}

// MasteryMessage is the encouragement line shown next to a mastery percentage.
func MasteryMessage(mastery int) string {
	switch {
	case mastery >= 90:
		return "Expert level!"
	case mastery >= strongMastery:
		return "Almost there!"
	case mastery >= focusMastery:
		return "Making progress!"
	default:
		return "Just getting started!"
	}
}

func tierFor(mastery int) string {
	switch {
	case mastery >= strongMastery:
		return "large"
	case mastery >= focusMastery:
		return "medium"
	default:
		return "small"
	}
}

func pick(all []ModuleProgress, keep func(ModuleProgress) bool, less func(a, b ModuleProgress) bool) []ModuleProgress {
	out := make([]ModuleProgress, 0, topAreas)
	for _, p := range all {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > topAreas {
		out = out[:topAreas]
	}
	return out
}
