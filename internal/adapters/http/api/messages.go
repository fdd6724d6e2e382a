package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trophycase/internal/adapters/mq/queue"
	service "github.com/okian/trophycase/internal/app"
	"github.com/okian/trophycase/internal/domain/microjson"
	"github.com/okian/trophycase/internal/domain/model"
)

// MessageIDHeader carries the delivery id of a feed message.
const MessageIDHeader = "X-Message-Id"

const maxMessageBytes = 1 << 20

// MessageDependencies defines what the messages endpoint needs.
type MessageDependencies interface {
	Enqueue(ctx context.Context, msg model.Message) error
}

// MessagesHandler accepts raw feed messages.
type MessagesHandler struct {
	deps MessageDependencies
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(deps MessageDependencies) *MessagesHandler {
	return &MessagesHandler{deps: deps}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	MessageID string `json:"messageId"`
}

// HandlePostMessage handles POST /messages requests. The body is the feed
// message exactly as the game service sent it.
func (h *MessagesHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrEmptyBody)
		return
	}

	id := messageID(r, body)
	msg := model.Message{ID: id, Payload: body, ReceivedAt: time.Now()}
	err = h.deps.Enqueue(r.Context(), msg)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", MessageID: id})
	case errors.Is(err, service.ErrDuplicate):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, MessageID: id})
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// messageID takes the id from the header, then from the body's messageId
// field, and otherwise makes one up.
func messageID(r *http.Request, body []byte) string {
	if id := strings.TrimSpace(r.Header.Get(MessageIDHeader)); id != "" {
		return id
	}
	if id, ok := microjson.String(string(body), "messageId"); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
