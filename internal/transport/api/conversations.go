package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/pkg/log"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTitleLength  = 100
)

// CreateConversation starts an empty, timestamp-titled conversation.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	title := "Main Title " + h.now().Format("2006-01-02 15:04:05")

	conv, err := h.repo.Create(r.Context(), &title)
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Msg("failed to create conversation")
		h.Error(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	log.FromCtx(r.Context()).Info().Str("conversation_id", conv.ID).Msg("created conversation")
	h.JSON(w, http.StatusCreated, conv)
}

// ListConversations returns summaries, or full conversations with
// include_messages=true. Store failures yield an empty list.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	logger := log.FromCtx(r.Context())
	q := r.URL.Query()

	skip, err := intParam(q.Get("skip"), 0)
	if err != nil || skip < 0 {
		h.Error(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}

	limit, err := intParam(q.Get("limit"), defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		h.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	includeMessages := false
	if v := q.Get("include_messages"); v != "" {
		includeMessages, err = strconv.ParseBool(v)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "include_messages must be a boolean")
			return
		}
	}

	if includeMessages {
		convs, err := h.repo.ListFull(r.Context(), skip, limit)
		if err != nil {
			logger.Error().Err(err).Msg("failed to list conversations")
			convs = []core.Conversation{}
		}
		h.JSON(w, http.StatusOK, convs)
		return
	}

	summaries, err := h.repo.List(r.Context(), skip, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list conversations")
		summaries = []core.ConversationSummary{}
	}
	h.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, core.ErrConversationNotFound) {
		h.Error(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Str("conversation_id", id).Msg("failed to get conversation")
		h.Error(w, http.StatusInternalServerError, "Failed to retrieve conversation")
		return
	}

	h.JSON(w, http.StatusOK, conv)
}

type updateConversationRequest struct {
	Title *string `json:"title"`
}

// UpdateConversation renames a conversation. Title is the only mutable field.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == nil {
		h.Error(w, http.StatusBadRequest, "No valid update fields provided")
		return
	}

	title := strings.TrimSpace(*req.Title)
	if n := utf8.RuneCountInString(title); n < 1 || n > maxTitleLength {
		h.Error(w, http.StatusBadRequest, "title must be between 1 and 100 characters")
		return
	}

	conv, err := h.repo.UpdateTitle(r.Context(), id, title)
	if errors.Is(err, core.ErrConversationNotFound) {
		h.Error(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Str("conversation_id", id).Msg("failed to update conversation")
		h.Error(w, http.StatusInternalServerError, "Failed to update conversation")
		return
	}

	h.JSON(w, http.StatusOK, conv)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Str("conversation_id", id).Msg("failed to delete conversation")
		h.Error(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	if !deleted {
		h.Error(w, http.StatusNotFound, "Conversation not found")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

func (h *Handler) ConversationsHealth(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{
		"service":     "conversations",
		"status":      "operational",
		"description": "Conversation management service is running",
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
