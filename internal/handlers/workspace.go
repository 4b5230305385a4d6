package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/querydeck/querydeck/api/v1"
	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// GetWorkspace returns the persisted workspace state for the current profile.
// A profile with no saved state yet gets an empty one.
// (GET /workspace)
func (h *Handler) GetWorkspace(c *gin.Context) {
	id := profileID(c)
	ws, err := h.store.Workspace().Get(c.Request.Context(), id)
	if srvErrors.IsResourceNotFoundError(err) {
		ws = &models.WorkspaceState{ProfileID: id, Tabs: []models.WorkspaceTab{}}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to load workspace"})
		return
	}
	c.JSON(http.StatusOK, ws)
}

// SaveWorkspace schedules a debounced save of the workspace state. The write
// is acknowledged before it lands; rapid edits coalesce into one write.
// (PUT /workspace)
func (h *Handler) SaveWorkspace(c *gin.Context) {
	var ws models.WorkspaceState
	if err := c.ShouldBindJSON(&ws); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	ws.ProfileID = profileID(c)
	h.autosaver.Schedule(ws)
	c.Status(http.StatusAccepted)
}
