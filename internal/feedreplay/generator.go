package feedreplay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	progressBatch = 3 // the feed never reports more than three deltas at once
	baseTitleID   = 1700000000
)

type presenceEntry struct {
	IsGame       bool   `json:"isGame"`
	PresenceText string `json:"presenceText"`
	TitleID      string `json:"titleId"`
}

type presenceMessage struct {
	PresenceDetails []presenceEntry `json:"presenceDetails"`
}

type mediaAsset struct {
	URL string `json:"url"`
}

type reward struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type achievementEntry struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	LockedDescription string       `json:"lockedDescription"`
	ProgressState     string       `json:"progressState"`
	IsSecret          string       `json:"isSecret"`
	Progression       progression  `json:"progression"`
	MediaAssets       []mediaAsset `json:"mediaAssets"`
	Rewards           []reward     `json:"rewards"`
}

type progression struct {
	TimeUnlocked string `json:"timeUnlocked"`
}

type metadataMessage struct {
	ServiceConfigID string             `json:"serviceConfigId"`
	Achievements    []achievementEntry `json:"achievements"`
}

type progressEntry struct {
	ID            string `json:"id"`
	ProgressState string `json:"progressState"`
	TimeUnlocked  string `json:"timeUnlocked"`
}

type progressMessage struct {
	ServiceConfigID string          `json:"serviceConfigId"`
	Progression     []progressEntry `json:"progression"`
}

const neverUnlocked = "0001-01-01T00:00:00Z"

// Generate writes a synthetic feed to w as JSON lines: for every title a
// presence message, its achievement definitions and the progress messages
// unlocking some of them. It returns the number of records written.
func Generate(ctx context.Context, cfg GenerateConfig, w io.Writer) (int, error) {
	if cfg.Titles <= 0 {
		cfg.Titles = DefaultTitles
	}
	if cfg.Achievements <= 0 {
		cfg.Achievements = DefaultAchievements
	}
	if cfg.Unlocks < 0 || cfg.Unlocks > cfg.Achievements {
		cfg.Unlocks = cfg.Achievements
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic data

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	written := 0
	emit := func(payload any) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		if err := enc.Encode(Record{ID: uuid.NewString(), Payload: raw}); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		written++
		return nil
	}

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for t := range cfg.Titles {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		titleID := strconv.Itoa(baseTitleID + t)
		scid := uuid.NewString()
		if err := emit(presenceMessage{PresenceDetails: []presenceEntry{
			{IsGame: false, PresenceText: "Home", TitleID: "750323071"},
			{IsGame: true, PresenceText: fmt.Sprintf("Title %d", t+1), TitleID: titleID},
		}}); err != nil {
			return written, err
		}

		defs := make([]achievementEntry, cfg.Achievements)
		for i := range defs {
			id := strconv.Itoa(i + 1)
			defs[i] = achievementEntry{
				ID:                id,
				Name:              fmt.Sprintf("Achievement %s", id),
				Description:       fmt.Sprintf("Unlocked achievement %s of title %d", id, t+1),
				LockedDescription: fmt.Sprintf("Keep playing title %d", t+1),
				ProgressState:     "NotStarted",
				IsSecret:          strconv.FormatBool(rng.Intn(5) == 0),
				Progression:       progression{TimeUnlocked: neverUnlocked},
				MediaAssets:       []mediaAsset{{URL: fmt.Sprintf("https://images.example.com/%s/%s.png", titleID, id)}},
				Rewards:           []reward{{Type: "Gamerscore", Value: strconv.Itoa(5 * (1 + rng.Intn(10)))}},
			}
		}
		if err := emit(metadataMessage{ServiceConfigID: scid, Achievements: defs}); err != nil {
			return written, err
		}

		order := rng.Perm(cfg.Achievements)[:cfg.Unlocks]
		for start := 0; start < len(order); start += progressBatch {
			end := min(start+progressBatch, len(order))
			msg := progressMessage{ServiceConfigID: scid}
			for _, idx := range order[start:end] {
				clock = clock.Add(time.Duration(1+rng.Intn(600)) * time.Second)
				msg.Progression = append(msg.Progression, progressEntry{
					ID:            defs[idx].ID,
					ProgressState: "Achieved",
					TimeUnlocked:  clock.Format(time.RFC3339),
				})
			}
			if err := emit(msg); err != nil {
				return written, err
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flushing feed: %w", err)
	}
	return written, nil
}
