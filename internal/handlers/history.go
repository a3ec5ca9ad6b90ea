package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crewchat-hq/crewchat/internal/api/middleware"
	"github.com/crewchat-hq/crewchat/internal/models"
)

// HistoryResponse represents the project history response.
type HistoryResponse struct {
	ProjectID int64                `json:"project_id"`
	Messages  []models.ChatMessage `json:"messages"`
}

// History returns a project's message log in creation order. It backs the
// dashboard's chat pane; membership is re-checked on every request.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	ok, err := h.directory.IsCollaborator(r.Context(), claims.UserID, projectID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "membership check failed")
		return
	}
	if !ok {
		h.Error(w, http.StatusForbidden, "not a collaborator on this project")
		return
	}

	messages, err := h.store.HistoryFor(r.Context(), projectID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	h.JSON(w, http.StatusOK, HistoryResponse{
		ProjectID: projectID,
		Messages:  messages,
	})
}
