// Package catalogue implements the selection, counting and ordering rules over
// the achievement sequence of the current title.
//
// Every function takes the sequence as an argument; the package keeps no
// state. A nil sequence behaves like an empty one.
package catalogue

import (
	"github.com/okian/trophycase/internal/domain/model"
)

// Rand is the source of randomness used by RandomLocked. *math/rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
}

// Count returns the length of the sequence.
func Count(achievements []model.Achievement) int {
	return len(achievements)
}

// CountLocked counts the entries that have not been unlocked.
func CountLocked(achievements []model.Achievement) int {
	n := 0
	for i := range achievements {
		if !achievements[i].Unlocked() {
			n++
		}
	}
	return n
}

// CountUnlocked counts the entries with a positive unlock time.
func CountUnlocked(achievements []model.Achievement) int {
	return len(achievements) - CountLocked(achievements)
}

// FindLatestUnlocked returns the unlocked entry with the greatest unlock time.
// On ties the first one encountered wins. The result points into the
// sequence; callers that keep it must Clone it.
func FindLatestUnlocked(achievements []model.Achievement) *model.Achievement {
	var latest *model.Achievement
	for i := range achievements {
		a := &achievements[i]
		if !a.Unlocked() {
			continue
		}
		if latest == nil || a.UnlockedTimestamp > latest.UnlockedTimestamp {
			latest = a
		}
	}
	return latest
}

// RandomLocked picks one locked entry uniformly using an index drawn from
// [0, locked count). It returns nil when nothing is locked.
func RandomLocked(achievements []model.Achievement, rng Rand) *model.Achievement {
	locked := CountLocked(achievements)
	if locked == 0 {
		return nil
	}
	target := rng.Intn(locked)
	for i := range achievements {
		if achievements[i].Unlocked() {
			continue
		}
		if target == 0 {
			return &achievements[i]
		}
		target--
	}
	return nil
}

// StableOrder reorders the sequence in place: unlocked entries first, most
// recent unlock first, locked entries after them in their original relative
// order. Each element is taken in original order and inserted into the
// growing sorted prefix.
func StableOrder(achievements []model.Achievement) {
	for i := 1; i < len(achievements); i++ {
		cur := achievements[i]
		j := i
		for j > 0 && before(&cur, &achievements[j-1]) {
			achievements[j] = achievements[j-1]
			j--
		}
		achievements[j] = cur
	}
}

// before reports whether a must be placed ahead of b.
func before(a, b *model.Achievement) bool {
	if !a.Unlocked() {
		return false
	}
	if !b.Unlocked() {
		return true
	}
	return a.UnlockedTimestamp > b.UnlockedTimestamp
}
