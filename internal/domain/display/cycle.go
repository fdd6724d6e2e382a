// Package display decides which single achievement is on screen at any
// moment.
//
// A Cycle alternates between showing the most recently unlocked achievement
// and rotating through random locked ones. It is driven by Tick and by the
// lifecycle events of the session that owns the catalogue, and it publishes
// every change to a bounded list of subscribers.
//
// All methods are safe for concurrent use. SessionReady in particular is
// expected to arrive from the icon prefetch goroutine while Tick runs on a
// ticker goroutine.
package display

import (
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/okian/trophycase/internal/domain/catalogue"
	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
)

// Phase is one of the two modes the cycle spends time in.
type Phase int

// Display phases.
const (
	PhaseLastUnlocked Phase = iota
	PhaseLockedRotation
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseLockedRotation:
		return "locked_rotation"
	default:
		return "last_unlocked"
	}
}

// Source yields the achievements of the title currently played. The
// returned slice must not be shared with the caller's own state.
type Source interface {
	Achievements(ctx context.Context) []model.Achievement
}

// Subscriber receives every published achievement. A nil achievement blanks
// the display. Each subscriber gets its own copy. Subscribers are compared by
// identity, so implementations should be pointers.
//
// Subscribers may call the query methods of the Cycle. Events and Tick
// issued from inside OnDisplay are delivered after the current publication.
type Subscriber interface {
	OnDisplay(ctx context.Context, a *model.Achievement)
}

type publication struct {
	achievement *model.Achievement
	subscribers []Subscriber
}

// Cycle is the display state machine. Create it with New and release it
// with Close.
type Cycle struct {
	source Source
	log    logger.Logger
	rng    catalogue.Rand

	lastUnlockedFor time.Duration
	lockedFor       time.Duration
	rotationFor     time.Duration
	maxSubscribers  int

	mu           sync.Mutex
	phase        Phase
	phaseLeft    time.Duration
	itemLeft     time.Duration
	lastUnlocked *model.Achievement
	current      *model.Achievement
	subscribers  []Subscriber
	onPublish    func(Phase)
	initialized  bool
	ready        bool

	// pending publications in state-change order; drained by one goroutine
	// at a time.
	pending  []publication
	flushing bool
}

// New creates an initialized cycle reading from source. The cycle stays idle
// until SessionReady.
func New(source Source, opts ...Option) *Cycle {
	c := &Cycle{
		source:          source,
		log:             logger.Nop(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // display rotation, not security
		lastUnlockedFor: DefaultLastUnlockedDuration,
		lockedFor:       DefaultLockedDuration,
		rotationFor:     DefaultRotationDuration,
		maxSubscribers:  DefaultMaxSubscribers,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.phase = PhaseLastUnlocked
	c.phaseLeft = c.lastUnlockedFor
	c.itemLeft = c.lockedFor
	c.initialized = true
	return c
}

// Close drops the cached achievements and every subscriber. Later calls on
// the cycle are no-ops. Close is idempotent.
func (c *Cycle) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initialized = false
	c.ready = false
	c.lastUnlocked = nil
	c.current = nil
	c.subscribers = nil
	c.pending = nil
}

// Tick advances the timers by delta. It does nothing until the session is
// ready.
func (c *Cycle) Tick(ctx context.Context, delta time.Duration) {
	c.mu.Lock()
	if !c.initialized || !c.ready {
		c.mu.Unlock()
		return
	}

	switch c.phase {
	case PhaseLastUnlocked:
		c.phaseLeft -= delta
		if c.phaseLeft <= 0 {
			achievements := c.source.Achievements(ctx)
			if catalogue.CountLocked(achievements) > 0 {
				c.phase = PhaseLockedRotation
				c.phaseLeft = c.rotationFor
				c.itemLeft = c.lockedFor
				c.log.Debug(ctx, "display phase changed", logger.String("phase", c.phase.String()))
				c.publishLocked(catalogue.RandomLocked(achievements, c.rng))
			} else {
				c.phaseLeft = c.lastUnlockedFor
			}
		}

	case PhaseLockedRotation:
		c.phaseLeft -= delta
		c.itemLeft -= delta
		if c.itemLeft <= 0 {
			c.itemLeft = c.lockedFor
			c.publishLocked(catalogue.RandomLocked(c.source.Achievements(ctx), c.rng))
		}
		if c.phaseLeft <= 0 {
			c.phase = PhaseLastUnlocked
			c.phaseLeft = c.lastUnlockedFor
			if c.lastUnlocked == nil {
				c.lastUnlocked = catalogue.FindLatestUnlocked(c.source.Achievements(ctx)).Clone()
			}
			c.log.Debug(ctx, "display phase changed", logger.String("phase", c.phase.String()))
			c.publishLocked(c.lastUnlocked)
		}
	}
	c.mu.Unlock()

	c.flush(ctx)
}

// ConnectionChanged restarts the cycle from the latest unlocked achievement.
func (c *Cycle) ConnectionChanged(ctx context.Context) {
	c.restart(ctx, false)
}

// AchievementsProgressed restarts the cycle from the latest unlocked
// achievement.
func (c *Cycle) AchievementsProgressed(ctx context.Context) {
	c.restart(ctx, false)
}

// SessionReady marks the session ready and restarts the cycle.
func (c *Cycle) SessionReady(ctx context.Context) {
	c.restart(ctx, true)
}

// GamePlayed marks the session not ready and forgets the cached achievement
// until the next SessionReady. A display that still shows the previous
// title's achievement is blanked with a nil publication.
func (c *Cycle) GamePlayed(ctx context.Context) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	c.ready = false
	c.lastUnlocked = nil
	if c.current != nil {
		c.publishLocked(nil)
	}
	c.log.Debug(ctx, "display waiting for session")
	c.mu.Unlock()

	c.flush(ctx)
}

func (c *Cycle) restart(ctx context.Context, markReady bool) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	if markReady {
		c.ready = true
	}
	if !c.ready {
		c.mu.Unlock()
		return
	}

	c.lastUnlocked = catalogue.FindLatestUnlocked(c.source.Achievements(ctx)).Clone()
	c.phase = PhaseLastUnlocked
	c.phaseLeft = c.lastUnlockedFor
	c.itemLeft = c.lockedFor
	c.publishLocked(c.lastUnlocked)
	c.mu.Unlock()

	c.flush(ctx)
}

// publishLocked records a as current and queues it for the subscribers
// registered now. Must be called with c.mu held.
func (c *Cycle) publishLocked(a *model.Achievement) {
	if c.onPublish != nil {
		c.onPublish(c.phase)
	}
	c.current = a.Clone()
	c.pending = append(c.pending, publication{
		achievement: a.Clone(),
		subscribers: slices.Clone(c.subscribers),
	})
}

// flush delivers pending publications in order. If another call is already
// delivering, it picks up whatever is queued here.
func (c *Cycle) flush(ctx context.Context) {
	c.mu.Lock()
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for len(c.pending) > 0 {
		p := c.pending[0]
		c.pending[0] = publication{}
		c.pending = c.pending[1:]
		c.mu.Unlock()

		for _, s := range p.subscribers {
			s.OnDisplay(ctx, p.achievement.Clone())
		}

		c.mu.Lock()
	}
	c.pending = nil
	c.flushing = false
	c.mu.Unlock()
}

// Current returns a copy of the last published achievement.
func (c *Cycle) Current() *model.Achievement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// LastUnlocked returns a copy of the cached last unlocked achievement,
// regardless of the phase.
func (c *Cycle) LastUnlocked() *model.Achievement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUnlocked.Clone()
}

// Phase returns the current phase.
func (c *Cycle) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Ready reports whether the session is ready and the cycle is running.
func (c *Cycle) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized && c.ready
}
