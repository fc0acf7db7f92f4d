package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/session"
)

// Handler exposes the chat endpoints. All routes require a session.
type Handler struct {
	service *Service
	relay   *Relay
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, relay *Relay) *Handler {
	return &Handler{service: service, relay: relay}
}

type sendRequest struct {
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

// History handles GET /api/v1/chat/messages.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.History(r.Context(), counterpartParam(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": messages})
}

// Send handles POST /api/v1/chat/messages.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON payload", nil)
		return
	}
	msg, err := h.service.Send(r.Context(), req.ReceiverID, req.Message)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": msg})
}

// Stream handles GET /api/v1/chat/stream. Messages for the session holder's
// conversation are pushed as server-sent events until the client disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported", nil)
		return
	}
	counterpart, err := h.service.Counterpart(r.Context(), counterpartParam(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages, cancel := h.relay.Subscribe(sess.UserID, counterpart)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func counterpartParam(r *http.Request) int64 {
	raw := strings.TrimSpace(r.URL.Query().Get("counterpart"))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}
