// Package service runs the achievement session: it ingests feed messages,
// keeps the catalogue of the current title and drives the display cycle.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trophycase/internal/adapters/iconcache"
	eventqueue "github.com/okian/trophycase/internal/adapters/mq/queue"
	workerpool "github.com/okian/trophycase/internal/adapters/mq/worker"
	"github.com/okian/trophycase/internal/adapters/repository"
	"github.com/okian/trophycase/internal/domain/catalogue"
	"github.com/okian/trophycase/internal/domain/dedupe"
	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/internal/domain/feed"
	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
	"github.com/okian/trophycase/pkg/metrics"
)

const (
	defaultQueueSize    = 1024
	defaultDedupeSize   = 4096
	defaultTickInterval = 100 * time.Millisecond
)

// Service owns the session state. Create it with New, then Start it.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.MemoryStore
	deduper dedupe.Deduper
	cycle   *display.Cycle
	icons   IconPrefetcher
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	tickInterval   time.Duration
	baseGamerscore int64
	displayOpts    []display.Option

	// State
	started    bool
	connected  atomic.Bool
	stopTicker context.CancelFunc
	tickerDone chan struct{}

	// session serializes title switches against prefetch completions.
	session    sync.Mutex
	generation uint64 // bumped on every title switch; guarded by session

	logger logger.Logger
}

var _ workerpool.Handler = (*Service)(nil)

// New constructs a Service. The catalogue and display cycle exist right away
// so that subscribers can be attached before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  1,
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		tickInterval: defaultTickInterval,
		logger:       logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.icons == nil {
		s.icons = iconcache.New(iconcache.WithLogger(s.logger))
	}

	s.store = repository.NewMemoryStore(repository.WithBaseGamerscore(s.baseGamerscore))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.cycle = display.New(s.store, append([]display.Option{
		display.WithLogger(s.logger),
		display.WithPublishHook(recordPublish),
	}, s.displayOpts...)...)
	return s
}

// Start initializes the queue, the worker pool and the display ticker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting achievement session...")

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	tickCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopTicker = cancel
	s.tickerDone = make(chan struct{})
	go s.tick(tickCtx, s.tickerDone)

	s.started = true
	s.logger.Info(ctx, "achievement session started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("tickInterval", s.tickInterval),
	)
	return nil
}

// Stop drains the queue and stops the ticker. The session state is kept, so
// the service can be started again.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping achievement session...")

	err := s.pool.Shutdown(ctx)
	s.stopTicker()
	<-s.tickerDone

	s.started = false
	if err != nil {
		return fmt.Errorf("stopping workers: %w", err)
	}
	s.logger.Info(ctx, "achievement session stopped")
	return nil
}

// Close releases the display cycle. The service cannot be used afterwards.
func (s *Service) Close(ctx context.Context) error {
	err := s.Stop(ctx)
	s.cycle.Close()
	metrics.UpdateDisplaySubscribers(0)
	return err
}

func (s *Service) tick(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.cycle.Tick(ctx, now.Sub(last))
			last = now
		}
	}
}

// SeenAndRecord atomically checks if a message key was seen and records it
// if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	seen := s.deduper.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordMessageDuplicate()
	}
	return seen
}

// Unrecord forgets a message key so it can be submitted again.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Enqueue submits a feed message for asynchronous processing. Messages are
// deduplicated by ID, or by payload when they have none.
func (s *Service) Enqueue(ctx context.Context, msg model.Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}

	key := msg.ID
	if key == "" {
		key = string(msg.Payload)
	}
	if s.SeenAndRecord(ctx, key) {
		s.logger.Debug(ctx, "duplicate message detected, skipping", logger.String("messageID", msg.ID))
		return ErrDuplicate
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.Unrecord(ctx, key)
		return fmt.Errorf("enqueueing message %q: %w", msg.ID, err)
	}
	return nil
}

// HandleMessage applies one feed message to the session. It implements
// worker.Handler; messages that carry nothing usable are counted and
// dropped without error.
func (s *Service) HandleMessage(ctx context.Context, msg model.Message) error {
	raw := string(msg.Payload)
	kind := feed.Classify(raw)
	metrics.RecordMessageReceived(kind.String())

	switch kind {
	case feed.KindPresence:
		s.applyPresence(ctx, raw)
	case feed.KindAchievementMetadata:
		s.applyAchievements(ctx, raw)
	default:
		s.logger.Debug(ctx, "ignoring unrecognized message", logger.String("messageID", msg.ID))
	}
	return nil
}

func (s *Service) applyPresence(ctx context.Context, raw string) {
	game, ok := feed.ParseGame(raw)
	if !ok {
		metrics.RecordMessageEmpty(feed.KindPresence.String())
		return
	}
	s.session.Lock()
	defer s.session.Unlock()

	if !s.store.SetGame(ctx, game) {
		return
	}

	s.generation++
	s.logger.Info(ctx, "title changed", logger.String("gameID", game.ID), logger.String("title", game.Title))
	s.cycle.GamePlayed(ctx)
}

func (s *Service) applyAchievements(ctx context.Context, raw string) {
	definitions := feed.ParseAchievements(raw)
	progress := feed.ParseAchievementProgress(raw)
	if len(definitions) == 0 && len(progress) == 0 {
		metrics.RecordMessageEmpty(feed.KindAchievementMetadata.String())
		return
	}

	if len(definitions) > 0 {
		s.session.Lock()
		size := s.store.MergeAchievements(ctx, definitions)
		gen := s.generation
		s.session.Unlock()

		s.logger.Debug(ctx, "achievement definitions merged",
			logger.Int("received", len(definitions)),
			logger.Int("catalogue", size),
		)

		readyCtx := context.WithoutCancel(ctx)
		s.icons.Prefetch(readyCtx, definitions, func() {
			s.markReady(readyCtx, gen)
		})
	}

	if len(progress) > 0 {
		if n := s.store.ApplyProgress(ctx, progress); n > 0 {
			s.logger.Debug(ctx, "achievement progress applied", logger.Int("changed", n))
			s.cycle.AchievementsProgressed(ctx)
		}
	}
}

// markReady marks the session ready unless the title changed after the
// prefetch for generation gen started.
func (s *Service) markReady(ctx context.Context, gen uint64) {
	s.session.Lock()
	defer s.session.Unlock()

	if s.generation != gen {
		s.logger.Debug(ctx, "title changed during icon prefetch, not marking ready")
		return
	}
	s.cycle.SessionReady(ctx)
}

// SetConnected records the feed connection state and restarts the display
// cycle.
func (s *Service) SetConnected(ctx context.Context, connected bool) {
	s.connected.Store(connected)
	s.logger.Info(ctx, "feed connection changed", logger.Bool("connected", connected))
	s.cycle.ConnectionChanged(ctx)
}

// Connected reports the last connection state set.
func (s *Service) Connected() bool {
	return s.connected.Load()
}

// Subscribe attaches a display subscriber.
func (s *Service) Subscribe(sub display.Subscriber) bool {
	ok := s.cycle.Subscribe(sub)
	metrics.UpdateDisplaySubscribers(s.cycle.Subscribers())
	return ok
}

// Unsubscribe detaches a display subscriber.
func (s *Service) Unsubscribe(sub display.Subscriber) bool {
	ok := s.cycle.Unsubscribe(sub)
	metrics.UpdateDisplaySubscribers(s.cycle.Subscribers())
	return ok
}

// Display returns the display cycle.
func (s *Service) Display() *display.Cycle {
	return s.cycle
}

// Catalogue returns the session store.
func (s *Service) Catalogue() repository.Store {
	return s.store
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	achievements := s.store.Achievements(ctx)
	stats := map[string]any{
		"started":      s.started,
		"connected":    s.connected.Load(),
		"ready":        s.cycle.Ready(),
		"phase":        s.cycle.Phase().String(),
		"subscribers":  s.cycle.Subscribers(),
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"dedupeCount":  s.deduper.Size(),
		"achievements": catalogue.Count(achievements),
		"locked":       catalogue.CountLocked(achievements),
		"unlocked":     catalogue.CountUnlocked(achievements),
	}
	if game, err := s.store.Game(ctx); err == nil {
		stats["gameId"] = game.ID
		stats["gameTitle"] = game.Title
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}

func recordPublish(phase display.Phase) {
	metrics.RecordDisplayPublish(phase.String())
}
