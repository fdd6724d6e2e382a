package catalogue

import (
	"github.com/okian/trophycase/internal/domain/model"
)

// ApplyProgress patches the progress state and unlock time of the entries
// matching each delta by service config and id. Deltas for unknown
// achievements are ignored. It returns the number of entries patched.
func ApplyProgress(achievements []model.Achievement, progress []model.AchievementProgress) int {
	if len(achievements) == 0 || len(progress) == 0 {
		return 0
	}
	index := make(map[string]int, len(achievements))
	for i := range achievements {
		index[achievements[i].Key()] = i
	}

	patched := 0
	for _, p := range progress {
		i, ok := index[p.ServiceConfigID+"/"+p.ID]
		if !ok {
			continue
		}
		achievements[i].ProgressState = p.ProgressState
		achievements[i].UnlockedTimestamp = p.UnlockedTimestamp
		patched++
	}
	return patched
}

// Merge folds incoming definitions into existing. An incoming entry replaces
// the existing one with the same key in place; new keys are appended in
// incoming order. The incoming entries are deep-copied.
func Merge(existing, incoming []model.Achievement) []model.Achievement {
	index := make(map[string]int, len(existing))
	for i := range existing {
		index[existing[i].Key()] = i
	}
	for i := range incoming {
		c := *incoming[i].Clone()
		if at, ok := index[c.Key()]; ok {
			existing[at] = c
			continue
		}
		index[c.Key()] = len(existing)
		existing = append(existing, c)
	}
	return existing
}

// NewGamerscore snapshots the unlocked entries of the sequence, most recent
// unlock first. The snapshot shares no storage with the sequence.
func NewGamerscore(base int64, achievements []model.Achievement) *model.Gamerscore {
	unlocked := make([]model.Achievement, 0, CountUnlocked(achievements))
	for i := range achievements {
		if achievements[i].Unlocked() {
			unlocked = append(unlocked, *achievements[i].Clone())
		}
	}
	StableOrder(unlocked)
	return &model.Gamerscore{
		BaseValue:            base,
		UnlockedAchievements: unlocked,
	}
}
