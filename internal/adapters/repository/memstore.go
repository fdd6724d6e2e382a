package repository

import (
	"context"
	"sync"

	"github.com/okian/trophycase/internal/domain/catalogue"
	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/metrics"
)

// MemoryStore is the in-memory Store. The catalogue belongs to the current
// game only; it is replaced as a whole when the title changes.
type MemoryStore struct {
	mu             sync.RWMutex
	game           *model.Game
	achievements   []model.Achievement
	baseGamerscore int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.observe()
	return s
}

// SetGame implements Store. A nil game is ignored.
func (s *MemoryStore) SetGame(_ context.Context, game *model.Game) bool {
	if game == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game != nil && s.game.ID == game.ID {
		s.game = game.Clone()
		return false
	}
	s.game = game.Clone()
	s.achievements = nil
	metrics.RecordGameSwitch()
	s.observe()
	return true
}

// Game implements Store.
func (s *MemoryStore) Game(context.Context) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.game == nil {
		return nil, ErrNotFound
	}
	return s.game.Clone(), nil
}

// Achievements implements Store and display.Source.
func (s *MemoryStore) Achievements(context.Context) []model.Achievement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneAchievements(s.achievements)
}

// MergeAchievements implements Store.
func (s *MemoryStore) MergeAchievements(_ context.Context, achievements []model.Achievement) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.achievements = catalogue.Merge(s.achievements, achievements)
	s.observe()
	return len(s.achievements)
}

// ApplyProgress implements Store.
func (s *MemoryStore) ApplyProgress(_ context.Context, progress []model.AchievementProgress) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := catalogue.ApplyProgress(s.achievements, progress)
	if n > 0 {
		s.observe()
	}
	return n
}

// Gamerscore implements Store.
func (s *MemoryStore) Gamerscore(context.Context) *model.Gamerscore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalogue.NewGamerscore(s.baseGamerscore, s.achievements)
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalogue.Count(s.achievements)
}

// CountLocked returns the number of locked achievements.
func (s *MemoryStore) CountLocked(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalogue.CountLocked(s.achievements)
}

// observe publishes the catalogue gauges. Must be called with s.mu held.
func (s *MemoryStore) observe() {
	score := catalogue.NewGamerscore(s.baseGamerscore, s.achievements)
	metrics.UpdateCatalogue(len(s.achievements), catalogue.CountLocked(s.achievements), score.Total())
	score.Release()
}
