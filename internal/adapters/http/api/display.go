package api

import (
	"net/http"

	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/internal/domain/model"
)

// DisplayDependencies defines what the display endpoint needs.
type DisplayDependencies interface {
	Display() *display.Cycle
}

// DisplayHandler reports the display cycle.
type DisplayHandler struct {
	deps DisplayDependencies
}

// NewDisplayHandler creates a new display handler.
func NewDisplayHandler(deps DisplayDependencies) *DisplayHandler {
	return &DisplayHandler{deps: deps}
}

type displayResponse struct {
	Phase        string             `json:"phase"`
	Ready        bool               `json:"ready"`
	Current      *model.Achievement `json:"current"`
	LastUnlocked *model.Achievement `json:"lastUnlocked"`
}

// HandleGetDisplay handles GET /display requests.
func (h *DisplayHandler) HandleGetDisplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	c := h.deps.Display()
	writeJSON(w, http.StatusOK, displayResponse{
		Phase:        c.Phase().String(),
		Ready:        c.Ready(),
		Current:      c.Current(),
		LastUnlocked: c.LastUnlocked(),
	})
}
