// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/trophycase/internal/adapters/repository"
	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Enqueue submits a feed message. It fails with a duplicate, queue-full
	// or not-started error.
	Enqueue(ctx context.Context, msg model.Message) error

	SetConnected(ctx context.Context, connected bool)
	Connected() bool

	Catalogue() repository.Store
	Display() *display.Cycle

	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	messagesHandler   *MessagesHandler
	connectionHandler *ConnectionHandler
	displayHandler    *DisplayHandler
	catalogueHandler  *CatalogueHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		messagesHandler:   NewMessagesHandler(deps),
		connectionHandler: NewConnectionHandler(deps),
		displayHandler:    NewDisplayHandler(deps),
		catalogueHandler:  NewCatalogueHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", instrument("stats", s.statsHandler.HandleStats))
	mux.HandleFunc("/messages", instrument("messages", s.messagesHandler.HandlePostMessage))
	mux.HandleFunc("/connection", instrument("connection", s.connectionHandler.HandleConnection))
	mux.HandleFunc("/display", instrument("display", s.displayHandler.HandleGetDisplay))
	mux.HandleFunc("/game", instrument("game", s.catalogueHandler.HandleGetGame))
	mux.HandleFunc("/achievements", instrument("achievements", s.catalogueHandler.HandleGetAchievements))
	mux.HandleFunc("/gamerscore", instrument("gamerscore", s.catalogueHandler.HandleGetGamerscore))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
