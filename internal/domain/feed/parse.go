package feed

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/trophycase/internal/domain/model"
)

const gamerscoreRewardType = "Gamerscore"

// ParseGame extracts the foreground game from a presence message. Only the
// first three presence entries are inspected; entries whose isGame is not
// truthy are skipped and later game entries overwrite earlier ones. It returns
// false when no entry supplied a titleId.
func ParseGame(raw string) (*model.Game, bool) {
	doc, ok := parse(raw)
	if !ok {
		return nil, false
	}
	details := doc.Get(fieldPresenceDetails)

	var (
		game     model.Game
		captured bool
	)
	for i := range capped(maxPresenceEntries, element(details)) {
		entry := details.Get(strconv.Itoa(i))
		if !entry.Get("isGame").Bool() {
			continue
		}
		if text := entry.Get("presenceText"); text.Exists() {
			game.Title = text.String()
		}
		if id := entry.Get("titleId"); id.Exists() {
			game.ID = id.String()
			captured = true
		}
	}
	if !captured {
		return nil, false
	}
	return &game, true
}

// ParseAchievementProgress decodes the unlock-state deltas of a progress
// message. At most three entries are read. A missing id ends the scan; a
// missing progressState or an absent/unparseable timeUnlocked skips only that
// entry.
func ParseAchievementProgress(raw string) []model.AchievementProgress {
	doc, ok := parse(raw)
	if !ok {
		return nil
	}
	scid := doc.Get(fieldServiceConfigID)
	if !scid.Exists() {
		return nil
	}
	entries := doc.Get(fieldProgression)

	var out []model.AchievementProgress
	for i := range capped(maxProgressEntries, field(entries, "id")) {
		entry := entries.Get(strconv.Itoa(i))
		state := entry.Get("progressState")
		if !state.Exists() {
			continue
		}
		unlocked := entry.Get("timeUnlocked")
		if !unlocked.Exists() {
			continue
		}
		ts, ok := unixSeconds(unlocked.String())
		if !ok {
			continue
		}
		out = append(out, model.AchievementProgress{
			ServiceConfigID:   scid.String(),
			ID:                entry.Get("id").String(),
			ProgressState:     state.String(),
			UnlockedTimestamp: ts,
		})
	}
	return out
}

// ParseAchievements decodes every achievement definition of a metadata
// message, stopping at the first entry without an id.
func ParseAchievements(raw string) []model.Achievement {
	doc, ok := parse(raw)
	if !ok {
		return nil
	}
	topSCID := doc.Get(fieldServiceConfigID).String()
	entries := doc.Get(fieldAchievements)

	var out []model.Achievement
	for i := range untilMissing(field(entries, "id")) {
		out = append(out, decodeAchievement(entries.Get(strconv.Itoa(i)), topSCID))
	}
	return out
}

func decodeAchievement(entry gjson.Result, topSCID string) model.Achievement {
	a := model.Achievement{
		ID:                entry.Get("id").String(),
		ServiceConfigID:   topSCID,
		Name:              entry.Get("name").String(),
		Description:       entry.Get("description").String(),
		LockedDescription: entry.Get("lockedDescription").String(),
		ProgressState:     entry.Get("progressState").String(),
	}
	if scid := entry.Get(fieldServiceConfigID); scid.Exists() {
		a.ServiceConfigID = scid.String()
	}

	secret := entry.Get("isSecret")
	a.IsSecret = secret.Type == gjson.String && secret.Str == "true"

	if unlocked := entry.Get("progression.timeUnlocked"); unlocked.Exists() {
		if ts, ok := unixSeconds(unlocked.String()); ok {
			a.UnlockedTimestamp = ts
		}
	}

	media := entry.Get("mediaAssets")
	for j := range untilMissing(field(media, "url")) {
		a.MediaAssets = append(a.MediaAssets, model.MediaAsset{
			URL: media.Get(strconv.Itoa(j) + ".url").String(),
		})
	}
	if icon := media.Get("0.url"); icon.Exists() {
		a.IconURL = icon.String()
	}

	rewards := entry.Get("rewards")
	for k := range untilMissing(element(rewards)) {
		r := rewards.Get(strconv.Itoa(k))
		if !strings.EqualFold(r.Get("type").String(), gamerscoreRewardType) {
			continue
		}
		value := r.Get("value")
		if !value.Exists() {
			continue
		}
		a.Rewards = append(a.Rewards, model.Reward{Value: value.String()})
	}
	return a
}

// element reports whether arr has an entry at index i.
func element(arr gjson.Result) func(int) bool {
	return func(i int) bool {
		return arr.IsArray() && arr.Get(strconv.Itoa(i)).Exists()
	}
}

// field reports whether the entry at index i of arr has the named field.
func field(arr gjson.Result, name string) func(int) bool {
	return func(i int) bool {
		return arr.IsArray() && arr.Get(strconv.Itoa(i)+"."+name).Exists()
	}
}
