package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ConnectionDependencies defines what the connection endpoint needs.
type ConnectionDependencies interface {
	SetConnected(ctx context.Context, connected bool)
	Connected() bool
}

// ConnectionHandler reports and changes the feed connection state.
type ConnectionHandler struct {
	deps ConnectionDependencies
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(deps ConnectionDependencies) *ConnectionHandler {
	return &ConnectionHandler{deps: deps}
}

type connectionBody struct {
	Connected *bool `json:"connected"`
}

type connectionResponse struct {
	Connected bool `json:"connected"`
}

// HandleConnection handles GET and POST /connection requests.
func (h *ConnectionHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, connectionResponse{Connected: h.deps.Connected()})
	case http.MethodPost:
		var body connectionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		if body.Connected == nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing connected", ErrBadRequest))
			return
		}
		h.deps.SetConnected(r.Context(), *body.Connected)
		writeJSON(w, http.StatusOK, connectionResponse{Connected: *body.Connected})
	default:
		http.NotFound(w, r)
	}
}
