package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/trophycase/internal/adapters/repository"
	"github.com/okian/trophycase/internal/domain/display"
)

// statsSource is the part of Dependencies the stats endpoint reads.
type statsSource interface {
	GetStats(ctx context.Context) map[string]any
	Catalogue() repository.Store
	Display() *display.Cycle
}

// StatsHandler serves GET /stats: the service counters plus what the
// overlay shows right now.
type StatsHandler struct {
	source statsSource
	now    func() time.Time
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(source statsSource) *StatsHandler {
	return &StatsHandler{source: source, now: time.Now}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	stats := h.source.GetStats(ctx)

	score := h.source.Catalogue().Gamerscore(ctx)
	stats["gamerscore"] = score.Total()
	score.Release()

	if current := h.source.Display().Current(); current != nil {
		stats["currentAchievementId"] = current.ID
	}
	stats["generatedAt"] = h.now().UTC().Format(time.RFC3339)

	writeJSON(w, http.StatusOK, stats)
}
