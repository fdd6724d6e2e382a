package display

import (
	"time"

	"github.com/okian/trophycase/internal/domain/catalogue"
	"github.com/okian/trophycase/pkg/logger"
)

// Default timings and limits.
const (
	DefaultLastUnlockedDuration = 45 * time.Second
	DefaultLockedDuration       = 30 * time.Second
	DefaultRotationDuration     = 120 * time.Second
	DefaultMaxSubscribers       = 16
)

// Option applies a configuration option to a Cycle.
type Option func(*Cycle)

// WithLastUnlockedDuration sets how long the last unlocked achievement is shown.
func WithLastUnlockedDuration(d time.Duration) Option {
	return func(c *Cycle) {
		if d > 0 {
			c.lastUnlockedFor = d
		}
	}
}

// WithLockedDuration sets how long each locked achievement is shown during
// rotation.
func WithLockedDuration(d time.Duration) Option {
	return func(c *Cycle) {
		if d > 0 {
			c.lockedFor = d
		}
	}
}

// WithRotationDuration sets the total length of the locked rotation phase.
func WithRotationDuration(d time.Duration) Option {
	return func(c *Cycle) {
		if d > 0 {
			c.rotationFor = d
		}
	}
}

// WithMaxSubscribers bounds the subscriber list.
func WithMaxSubscribers(n int) Option {
	return func(c *Cycle) {
		if n > 0 {
			c.maxSubscribers = n
		}
	}
}

// WithRand sets the source used to pick locked achievements.
func WithRand(rng catalogue.Rand) Option {
	return func(c *Cycle) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithLogger sets the logger used for refused subscriptions and transitions.
func WithLogger(l logger.Logger) Option {
	return func(c *Cycle) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPublishHook sets fn to run on every publication with the phase it was
// made in. fn runs with the cycle locked and must not call back into it.
func WithPublishHook(fn func(Phase)) Option {
	return func(c *Cycle) {
		c.onPublish = fn
	}
}
