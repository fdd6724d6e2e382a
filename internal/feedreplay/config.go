// Package feedreplay generates synthetic game-service feed messages and
// replays recorded feeds against a running trophycase service.
package feedreplay

import (
	"encoding/json"
	"time"
)

// Default settings.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultTitles       = 2
	DefaultAchievements = 12
	DefaultUnlocks      = 4
	DefaultTimeout      = 10 * time.Second
)

// GenerateConfig controls synthetic feed generation.
type GenerateConfig struct {
	Titles       int   // number of titles played one after another
	Achievements int   // achievement definitions per title
	Unlocks      int   // achievements unlocked while playing each title
	Seed         int64 // random seed; 0 uses the clock
}

// ReplayConfig controls how a feed is sent to the service.
type ReplayConfig struct {
	BaseURL string
	Delay   time.Duration // pause between messages
	Timeout time.Duration // per request
	Connect bool          // report the feed as connected before replaying
	Verbose bool
}

// Record is one line of a feed file.
type Record struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Stats summarizes a replay.
type Stats struct {
	Sent         int
	Accepted     int
	Duplicate    int
	Backpressure int
	Failed       int
	Skipped      int
	StartTime    time.Time
	Duration     time.Duration
}
