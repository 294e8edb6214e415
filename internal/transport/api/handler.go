package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sandevgo/datacom/internal/core"
)

// Returned for every 5xx so internal error text never reaches the caller.
const msgInternal = "DATACOM-7 system malfunction. Please retry."

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	chat  core.ChatTurn
	repo  core.ConversationRepository
	model core.ModelStatus
	now   func() time.Time
}

func NewHandler(chat core.ChatTurn, repo core.ConversationRepository, model core.ModelStatus) *Handler {
	return &Handler{
		chat:  chat,
		repo:  repo,
		model: model,
		now:   time.Now,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"detail": message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
