// Package repository holds the achievement catalogue of the title currently
// played.
package repository

import (
	"context"

	"github.com/okian/trophycase/internal/domain/model"
)

// Store provides read/write access to the session catalogue.
type Store interface {
	// SetGame records the foreground title. Switching to a different title
	// drops the previous catalogue and reports true.
	SetGame(ctx context.Context, game *model.Game) bool

	// Game returns the current title or ErrNotFound.
	Game(ctx context.Context) (*model.Game, error)

	// Achievements returns a deep copy of the catalogue in insertion order.
	Achievements(ctx context.Context) []model.Achievement

	// MergeAchievements folds definitions into the catalogue and returns the
	// resulting size.
	MergeAchievements(ctx context.Context, achievements []model.Achievement) int

	// ApplyProgress patches unlock state and returns how many entries changed.
	ApplyProgress(ctx context.Context, progress []model.AchievementProgress) int

	// Gamerscore snapshots the unlocked achievements.
	Gamerscore(ctx context.Context) *model.Gamerscore

	// Count returns the number of achievements tracked.
	Count(ctx context.Context) int
}
