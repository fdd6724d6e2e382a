// Package feed classifies and decodes game-service feed messages into domain
// records.
//
// Decoding is forgiving: a document that does not parse yields no records, and
// a malformed entry inside an array is skipped. Nothing here returns an error.
package feed

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Kind is the classification of a feed message.
type Kind int

// Message kinds.
const (
	KindUnknown Kind = iota
	KindPresence
	KindAchievementMetadata
)

// String implements fmt.Stringer; the values are used as metric labels.
func (k Kind) String() string {
	switch k {
	case KindPresence:
		return "presence"
	case KindAchievementMetadata:
		return "achievement_metadata"
	default:
		return "unknown"
	}
}

// Wire field names.
const (
	fieldPresenceDetails = "presenceDetails"
	fieldServiceConfigID = "serviceConfigId"
	fieldAchievements    = "achievements"
	fieldProgression     = "progression"
)

// Scan limits for arrays the feed never fills past a few entries.
const (
	maxPresenceEntries = 3
	maxProgressEntries = 3
)

// HasPresence reports whether raw has a top-level presenceDetails node.
func HasPresence(raw string) bool {
	doc, ok := parse(raw)
	return ok && doc.Get(fieldPresenceDetails).Exists()
}

// HasAchievementMetadata reports whether raw has a top-level serviceConfigId
// node. Progress messages carry one too.
func HasAchievementMetadata(raw string) bool {
	doc, ok := parse(raw)
	return ok && doc.Get(fieldServiceConfigID).Exists()
}

// Classify checks for presence before achievement metadata, so a message
// satisfying both is treated as presence.
func Classify(raw string) Kind {
	doc, ok := parse(raw)
	if !ok {
		return KindUnknown
	}
	switch {
	case doc.Get(fieldPresenceDetails).Exists():
		return KindPresence
	case doc.Get(fieldServiceConfigID).Exists():
		return KindAchievementMetadata
	default:
		return KindUnknown
	}
}

// parse returns the root of raw when it is a valid JSON object.
func parse(raw string) (gjson.Result, bool) {
	if raw == "" || !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return gjson.Result{}, false
	}
	return doc, true
}

// zoneless is accepted for timestamps the feed emits without a designator.
const zoneless = "2006-01-02T15:04:05.999999999"

// unixSeconds converts an ISO-8601 UTC timestamp to unix seconds. The zero
// time the feed sends for locked achievements maps to 0.
func unixSeconds(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.ParseInLocation(zoneless, s, time.UTC)
		if err != nil {
			return 0, false
		}
	}
	if sec := t.Unix(); sec > 0 {
		return sec, true
	}
	return 0, true
}
