// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"strconv"
	"strings"
)

// Game identifies the title the player currently has in the foreground.
type Game struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Clone returns an independent copy of g. A nil game clones to nil.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// MediaAsset is an image attached to an achievement. The first asset of an
// achievement is its icon.
type MediaAsset struct {
	URL string `json:"url"`
}

// Reward is a gamerscore reward attached to an achievement.
type Reward struct {
	Value string `json:"value"`
}

// Achievement is one achievement definition of a title together with the
// player's unlock state.
type Achievement struct {
	ID                string       `json:"id"`
	ServiceConfigID   string       `json:"serviceConfigId"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	LockedDescription string       `json:"lockedDescription"`
	ProgressState     string       `json:"progressState"`
	IsSecret          bool         `json:"isSecret"`
	UnlockedTimestamp int64        `json:"unlockedTimestamp"` // unix seconds, 0 while locked
	IconURL           string       `json:"iconUrl,omitempty"`
	MediaAssets       []MediaAsset `json:"mediaAssets,omitempty"`
	Rewards           []Reward     `json:"rewards,omitempty"`
}

// Unlocked reports whether the achievement has a positive unlock time.
func (a *Achievement) Unlocked() bool {
	return a.UnlockedTimestamp > 0
}

// Key identifies the achievement within its service config.
func (a *Achievement) Key() string {
	return a.ServiceConfigID + "/" + a.ID
}

// GamerscoreValue sums the reward values that parse as integers.
func (a *Achievement) GamerscoreValue() int64 {
	var total int64
	for _, r := range a.Rewards {
		v, err := strconv.ParseInt(strings.TrimSpace(r.Value), 10, 64)
		if err == nil {
			total += v
		}
	}
	return total
}

// Clone returns a deep copy of a; the copy shares no slices with a.
func (a *Achievement) Clone() *Achievement {
	if a == nil {
		return nil
	}
	c := *a
	c.MediaAssets = slices.Clone(a.MediaAssets)
	c.Rewards = slices.Clone(a.Rewards)
	return &c
}

// CloneAchievements deep-copies a sequence of achievements.
func CloneAchievements(in []Achievement) []Achievement {
	if in == nil {
		return nil
	}
	out := make([]Achievement, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}

// AchievementProgress patches the mutable unlock state of a known achievement.
type AchievementProgress struct {
	ServiceConfigID   string `json:"serviceConfigId"`
	ID                string `json:"id"`
	ProgressState     string `json:"progressState"`
	UnlockedTimestamp int64  `json:"unlockedTimestamp"`
}

// Gamerscore is a snapshot of the unlocked achievements of a title.
type Gamerscore struct {
	BaseValue            int64         `json:"baseValue"`
	UnlockedAchievements []Achievement `json:"unlockedAchievements"`
}

// Total is the base value plus the rewards of every unlocked achievement.
func (g *Gamerscore) Total() int64 {
	if g == nil {
		return 0
	}
	total := g.BaseValue
	for i := range g.UnlockedAchievements {
		total += g.UnlockedAchievements[i].GamerscoreValue()
	}
	return total
}

// Clone returns a deep copy of g.
func (g *Gamerscore) Clone() *Gamerscore {
	if g == nil {
		return nil
	}
	return &Gamerscore{
		BaseValue:            g.BaseValue,
		UnlockedAchievements: CloneAchievements(g.UnlockedAchievements),
	}
}

// Release drops the snapshot contents. Safe on nil and on released values.
func (g *Gamerscore) Release() {
	if g == nil {
		return
	}
	g.BaseValue = 0
	g.UnlockedAchievements = nil
}
