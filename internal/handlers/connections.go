package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/querydeck/querydeck/api/v1"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// ListConnections returns every connection visible to the profile.
// (GET /connections)
func (h *Handler) ListConnections(c *gin.Context) {
	conns, err := h.connections.List(c.Request.Context(), profileID(c))
	if err != nil {
		zap.S().Named("connection_handler").Errorw("failed to list connections", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list connections"})
		return
	}

	out := make([]v1.ConnectionResponse, 0, len(conns))
	for _, conn := range conns {
		out = append(out, v1.NewConnectionResponse(conn))
	}
	c.JSON(http.StatusOK, out)
}

// SaveConnection creates or updates a descriptor.
// (POST /connections)
func (h *Handler) SaveConnection(c *gin.Context) {
	var req v1.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	desc, err := req.ToDescriptor()
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	saved, err := h.connections.Save(c.Request.Context(), profileID(c), desc)
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, v1.NewConnectionResponse(*saved))
}

// DeleteConnection removes a stored descriptor.
// (DELETE /connections/:id)
func (h *Handler) DeleteConnection(c *gin.Context) {
	if err := h.connections.Delete(c.Request.Context(), profileID(c), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// SwitchConnection makes a descriptor the current query target.
// (POST /connections/:id/connect)
func (h *Handler) SwitchConnection(c *gin.Context) {
	err := h.connections.Switch(c.Request.Context(), profileID(c), c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case srvErrors.IsResourceNotFoundError(err):
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsAuthenticationError(err):
		c.JSON(http.StatusUnauthorized, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsContentionError(err), srvErrors.IsConnectivityError(err):
		c.JSON(http.StatusConflict, v1.ErrorResponse{Error: err.Error()})
	default:
		zap.S().Named("connection_handler").Errorw("failed to switch connection", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
	}
}
