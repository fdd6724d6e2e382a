package api

import (
	"errors"
	"net/http"

	"github.com/okian/trophycase/internal/adapters/repository"
	"github.com/okian/trophycase/internal/domain/catalogue"
	"github.com/okian/trophycase/internal/domain/model"
)

// CatalogueDependencies defines what the catalogue endpoints need.
type CatalogueDependencies interface {
	Catalogue() repository.Store
}

// CatalogueHandler serves the game, its achievements and the gamerscore.
type CatalogueHandler struct {
	deps CatalogueDependencies
}

// NewCatalogueHandler creates a new catalogue handler.
func NewCatalogueHandler(deps CatalogueDependencies) *CatalogueHandler {
	return &CatalogueHandler{deps: deps}
}

type achievementsResponse struct {
	Total        int                 `json:"total"`
	Locked       int                 `json:"locked"`
	Unlocked     int                 `json:"unlocked"`
	Achievements []model.Achievement `json:"achievements"`
}

type gamerscoreResponse struct {
	BaseValue            int64               `json:"baseValue"`
	Total                int64               `json:"total"`
	UnlockedAchievements []model.Achievement `json:"unlockedAchievements"`
}

// HandleGetGame handles GET /game requests.
func (h *CatalogueHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	game, err := h.deps.Catalogue().Game(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// HandleGetAchievements handles GET /achievements requests. Unlocked
// achievements come first, newest first, then the locked ones in catalogue
// order.
func (h *CatalogueHandler) HandleGetAchievements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	list := h.deps.Catalogue().Achievements(r.Context())
	catalogue.StableOrder(list)
	if list == nil {
		list = []model.Achievement{}
	}
	writeJSON(w, http.StatusOK, achievementsResponse{
		Total:        catalogue.Count(list),
		Locked:       catalogue.CountLocked(list),
		Unlocked:     catalogue.CountUnlocked(list),
		Achievements: list,
	})
}

// HandleGetGamerscore handles GET /gamerscore requests.
func (h *CatalogueHandler) HandleGetGamerscore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	score := h.deps.Catalogue().Gamerscore(r.Context())
	defer score.Release()

	unlocked := score.UnlockedAchievements
	if unlocked == nil {
		unlocked = []model.Achievement{}
	}
	writeJSON(w, http.StatusOK, gamerscoreResponse{
		BaseValue:            score.BaseValue,
		Total:                score.Total(),
		UnlockedAchievements: unlocked,
	})
}
