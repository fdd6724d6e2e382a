package feedreplay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/trophycase/pkg/logger"
)

const maxLineBytes = 4 << 20

// Replay posts every record of the JSON-lines feed in r, in order. Lines
// that do not decode are skipped and counted.
func Replay(ctx context.Context, cfg ReplayConfig, r io.Reader) (*Stats, error) {
	log := logger.Get()
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.Duration = time.Since(stats.StartTime) }()

	if cfg.Connect {
		if err := client.SetConnected(ctx, true); err != nil {
			return stats, fmt.Errorf("reporting connection: %w", err)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil || len(rec.Payload) == 0 {
			stats.Skipped++
			log.Warn(ctx, "skipping unreadable feed line", logger.Int("line", line))
			continue
		}

		if stats.Sent > 0 && cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}

		outcome, err := client.Send(ctx, rec)
		stats.Sent++
		switch outcome {
		case OutcomeAccepted:
			stats.Accepted++
		case OutcomeDuplicate:
			stats.Duplicate++
		case OutcomeBackpressure:
			stats.Backpressure++
		default:
			stats.Failed++
			log.Warn(ctx, "message rejected", logger.String("id", rec.ID), logger.Error(err))
		}
		if cfg.Verbose {
			log.Info(ctx, "message sent", logger.Int("line", line), logger.String("id", rec.ID))
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading feed: %w", err)
	}
	return stats, nil
}
