package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/querydeck/querydeck/api/v1"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// CreateProfile makes a new profile, optionally password-protected.
// (POST /profiles)
func (h *Handler) CreateProfile(c *gin.Context) {
	var req v1.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		zap.S().Named("profile_handler").Errorw("failed to create profile", "error", err)
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, v1.ProfileResponse{ID: profile.ID, Name: profile.Name, Protected: profile.Protected})
}

// ListProfiles returns all profiles.
// (GET /profiles)
func (h *Handler) ListProfiles(c *gin.Context) {
	profiles, err := h.profiles.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list profiles"})
		return
	}
	out := make([]v1.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, v1.ProfileResponse{ID: p.ID, Name: p.Name, Protected: p.Protected})
	}
	c.JSON(http.StatusOK, out)
}

// Login verifies a profile password and returns a session token.
// (POST /profiles/login)
func (h *Handler) Login(c *gin.Context) {
	var req v1.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		return
	}

	token, profile, err := h.profiles.Login(c.Request.Context(), req.Name, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, v1.LoginResponse{
			Token:   token,
			Profile: v1.ProfileResponse{ID: profile.ID, Name: profile.Name, Protected: profile.Protected},
		})
	case srvErrors.IsAuthenticationError(err):
		c.JSON(http.StatusUnauthorized, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsResourceNotFoundError(err):
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
	default:
		zap.S().Named("profile_handler").Errorw("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "login failed"})
	}
}

// DeleteProfile removes a profile and its key.
// (DELETE /profiles/:id)
func (h *Handler) DeleteProfile(c *gin.Context) {
	if err := h.profiles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
