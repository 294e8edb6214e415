package api

import (
	"errors"
	"net/http"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/service/chat"
	"github.com/sandevgo/datacom/pkg/log"
)

// Chat runs one turn against DATACOM-7.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	logger := log.FromCtx(r.Context())

	var req core.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.chat.ProcessChat(r.Context(), req)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			h.Error(w, http.StatusBadRequest, verr.Error())
			return
		}
		logger.Error().Err(err).Msg("chat turn failed")
		h.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}

	h.JSON(w, http.StatusOK, resp)
}

func (h *Handler) ChatHealth(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{
		"service":     "chat",
		"status":      "operational",
		"description": "DATACOM-7 chat service is running",
	})
}
