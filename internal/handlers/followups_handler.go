package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

const defaultCancelReason = "cancelled via api"

// FollowupService lists and cancels the reminders of a ticket
type FollowupService interface {
	ListFollowups(ctx context.Context, issueKey string) ([]*models.FollowupNotification, error)
	CancelPendingFollowups(ctx context.Context, issueKey, reason string) (int, error)
}

// FollowupsHandler serves follow-up reminders
type FollowupsHandler struct {
	followups FollowupService
	logger    arbor.ILogger
}

func NewFollowupsHandler(followups FollowupService, logger arbor.ILogger) *FollowupsHandler {
	return &FollowupsHandler{
		followups: followups,
		logger:    logger,
	}
}

// ListHandler handles GET /api/followups/{issueKey}
func (h *FollowupsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	issueKey := chi.URLParam(r, "issueKey")

	notifications, err := h.followups.ListFollowups(r.Context(), issueKey)
	if err != nil {
		h.logger.Error().Err(err).Str("issue_key", issueKey).Msg("Failed to list follow-ups")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if notifications == nil {
		notifications = []*models.FollowupNotification{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"issue_key": issueKey,
		"followups": notifications,
	})
}

// CancelRequest is the optional body of a cancel call
type CancelRequest struct {
	Reason string `json:"reason"`
}

// CancelHandler handles POST /api/followups/{issueKey}/cancel
func (h *FollowupsHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	issueKey := chi.URLParam(r, "issueKey")

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = defaultCancelReason
	}

	cancelled, err := h.followups.CancelPendingFollowups(r.Context(), issueKey, req.Reason)
	if err != nil {
		h.logger.Error().Err(err).Str("issue_key", issueKey).Msg("Failed to cancel follow-ups")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"issue_key": issueKey,
		"cancelled": cancelled,
	})
}
