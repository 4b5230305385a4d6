package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/querydeck/querydeck/api/v1"
)

// ExecuteQuery runs one query against the current engine.
// (POST /query)
func (h *Handler) ExecuteQuery(c *gin.Context) {
	var req v1.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	// Failures arrive in the result's Error field; the HTTP status stays 200
	// so the caller always renders the same shape.
	result := h.queries.Execute(c.Request.Context(), profileID(c), req.Query, req.HistoryKey)
	c.JSON(http.StatusOK, result)
}

// GetHistory returns the query ledger, most recent first.
// (GET /history)
func (h *Handler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.History())
}

// ClearHistory empties the ledger.
// (DELETE /history)
func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.queries.ClearHistory(c.Request.Context(), profileID(c)); err != nil {
		zap.S().Named("query_handler").Errorw("failed to clear history", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to clear history"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSchema returns the cached table listing for the current backend.
// (GET /schema)
func (h *Handler) GetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, h.refresher.Tables())
}
