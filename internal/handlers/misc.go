package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/querydeck/querydeck/api/v1"
	"github.com/querydeck/querydeck/internal/models"
)

// ListSettings returns all settings for the current profile.
// (GET /settings)
func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.store.Settings().List(c.Request.Context(), profileID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SetSetting upserts one setting value.
// (PUT /settings/:key)
func (h *Handler) SetSetting(c *gin.Context) {
	var req v1.SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	key := c.Param("key")
	if err := h.store.Settings().Set(c.Request.Context(), profileID(c), key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.Setting{Key: key, Value: req.Value})
}

// DeleteSetting removes one setting.
// (DELETE /settings/:key)
func (h *Handler) DeleteSetting(c *gin.Context) {
	if err := h.store.Settings().Delete(c.Request.Context(), profileID(c), c.Param("key")); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSavedQueries returns the saved queries of the current profile.
// (GET /saved-queries)
func (h *Handler) ListSavedQueries(c *gin.Context) {
	queries, err := h.store.SavedQueries().List(c.Request.Context(), profileID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list saved queries"})
		return
	}
	c.JSON(http.StatusOK, queries)
}

// SaveSavedQuery creates or updates a saved query.
// (POST /saved-queries)
func (h *Handler) SaveSavedQuery(c *gin.Context) {
	var req v1.SavedQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	q := models.SavedQuery{
		ID:        req.ID,
		Name:      req.Name,
		Query:     req.Query,
		CreatedAt: time.Now(),
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := h.store.SavedQueries().Save(c.Request.Context(), profileID(c), q); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, q)
}

// DeleteSavedQuery removes a saved query.
// (DELETE /saved-queries/:id)
func (h *Handler) DeleteSavedQuery(c *gin.Context) {
	if err := h.store.SavedQueries().Delete(c.Request.Context(), profileID(c), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAIConfigs returns the AI provider entries of the current profile. API
// keys come back decrypted for the editor surface.
// (GET /ai-configs)
func (h *Handler) ListAIConfigs(c *gin.Context) {
	configs, err := h.store.AIConfigs().List(c.Request.Context(), profileID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list AI provider configs"})
		return
	}
	c.JSON(http.StatusOK, configs)
}

// SaveAIConfig creates or updates an AI provider entry.
// (POST /ai-configs)
func (h *Handler) SaveAIConfig(c *gin.Context) {
	var req v1.AIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	cfg := models.AIProviderConfig{
		ID:       req.ID,
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
		Options:  req.Options,
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := h.store.AIConfigs().Save(c.Request.Context(), profileID(c), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// DeleteAIConfig removes an AI provider entry.
// (DELETE /ai-configs/:id)
func (h *Handler) DeleteAIConfig(c *gin.Context) {
	if err := h.store.AIConfigs().Delete(c.Request.Context(), profileID(c), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
