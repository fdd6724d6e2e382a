// Package broadcast mirrors the display cycle into Redis so that overlays
// running in other processes can follow it.
//
// The achievement on screen is kept in the hash {prefix}:display and every
// change is published as JSON on {prefix}:display_events.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
	"github.com/okian/trophycase/pkg/metrics"
)

// ErrEmptyPrefix is returned when no key prefix is configured.
var ErrEmptyPrefix = errors.New("broadcast prefix cannot be empty")

// Event is one display change. A nil Achievement means the display was
// blanked.
type Event struct {
	Achievement *model.Achievement `json:"achievement"`
	PublishedAt time.Time          `json:"publishedAt"`
}

// Broadcaster is a display subscriber writing to Redis.
type Broadcaster struct {
	rdb    *redis.Client
	prefix string
	log    logger.Logger
	now    func() time.Time
}

// New creates a Broadcaster for the given connection options.
func New(opts *redis.Options, prefix string, log logger.Logger) (*Broadcaster, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Broadcaster{
		rdb:    redis.NewClient(opts),
		prefix: prefix,
		log:    log,
		now:    time.Now,
	}, nil
}

// Close closes the Redis connection.
func (b *Broadcaster) Close() error {
	return b.rdb.Close()
}

// Ping verifies Redis connectivity.
func (b *Broadcaster) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// OnDisplay stores and publishes a display change. Failures are logged; the
// display cycle never sees them.
func (b *Broadcaster) OnDisplay(ctx context.Context, a *model.Achievement) {
	if err := b.Publish(ctx, a); err != nil {
		metrics.RecordErrorByComponent("broadcast", "publish")
		b.log.Warn(ctx, "broadcasting display change failed", logger.Error(err))
	}
}

// Publish writes a to the display hash and announces it.
func (b *Broadcaster) Publish(ctx context.Context, a *model.Achievement) error {
	key := DisplayKey(b.prefix)
	if a == nil {
		if err := b.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clearing display: %w", err)
		}
	} else if err := b.rdb.HSet(ctx, key, toHash(a)).Err(); err != nil {
		return fmt.Errorf("writing display: %w", err)
	}

	payload, err := json.Marshal(Event{Achievement: a, PublishedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshalling display event: %w", err)
	}
	if err := b.rdb.Publish(ctx, DisplayEventsChannel(b.prefix), payload).Err(); err != nil {
		return fmt.Errorf("publishing display event: %w", err)
	}
	metrics.RecordBroadcastPublish()
	return nil
}

// Current reads the display hash back. It returns nil when nothing is shown.
func (b *Broadcaster) Current(ctx context.Context) (map[string]string, error) {
	fields, err := b.rdb.HGetAll(ctx, DisplayKey(b.prefix)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading display: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func toHash(a *model.Achievement) map[string]any {
	return map[string]any{
		"id":                a.ID,
		"serviceConfigId":   a.ServiceConfigID,
		"name":              a.Name,
		"description":       a.Description,
		"lockedDescription": a.LockedDescription,
		"progressState":     a.ProgressState,
		"isSecret":          strconv.FormatBool(a.IsSecret),
		"unlockedTimestamp": strconv.FormatInt(a.UnlockedTimestamp, 10),
		"iconUrl":           a.IconURL,
		"gamerscore":        strconv.FormatInt(a.GamerscoreValue(), 10),
	}
}

// Subscription delivers display events published by any Broadcaster on the
// same prefix. Close it when done.
type Subscription struct {
	events <-chan Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the event channel. It closes when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Errors returns undecodable payloads.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe listens on the display events channel. The subscription is
// confirmed by Redis before Subscribe returns.
func (b *Broadcaster) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, DisplayEventsChannel(b.prefix))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to display events: %w", err)
	}

	events := make(chan Event, 16)
	errs := make(chan error, 16)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(events)
		defer close(errs)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errs <- fmt.Errorf("decoding display event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case events <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: events, errors: errs, cancel: cancel}, nil
}
