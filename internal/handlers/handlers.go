package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/services"
	"github.com/querydeck/querydeck/internal/store"
	"github.com/querydeck/querydeck/internal/workspace"
)

// profileIDKey is the gin context key the auth middleware sets.
const profileIDKey = "profileID"

// DefaultProfileID scopes data for sessions that never log into a profile.
const DefaultProfileID = "default"

type Handler struct {
	queries     *services.QueryService
	connections *services.ConnectionService
	profiles    *services.ProfileService
	refresher   *schema.Refresher
	store       *store.Store
	autosaver   *workspace.Autosaver
	engines     *engine.Manager
}

func New(
	queries *services.QueryService,
	connections *services.ConnectionService,
	profiles *services.ProfileService,
	refresher *schema.Refresher,
	st *store.Store,
	autosaver *workspace.Autosaver,
	engines *engine.Manager,
) *Handler {
	return &Handler{
		queries:     queries,
		connections: connections,
		profiles:    profiles,
		refresher:   refresher,
		store:       st,
		autosaver:   autosaver,
		engines:     engines,
	}
}

func profileID(c *gin.Context) string {
	if id := c.GetString(profileIDKey); id != "" {
		return id
	}
	return DefaultProfileID
}

// Register wires every route under the given group.
func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/query", h.ExecuteQuery)

	r.GET("/connections", h.ListConnections)
	r.POST("/connections", h.SaveConnection)
	r.DELETE("/connections/:id", h.DeleteConnection)
	r.POST("/connections/:id/connect", h.SwitchConnection)

	r.GET("/history", h.GetHistory)
	r.DELETE("/history", h.ClearHistory)

	r.GET("/schema", h.GetSchema)
	r.POST("/import", h.ImportFile)

	r.POST("/profiles", h.CreateProfile)
	r.GET("/profiles", h.ListProfiles)
	r.POST("/profiles/login", h.Login)
	r.DELETE("/profiles/:id", h.DeleteProfile)

	r.GET("/workspace", h.GetWorkspace)
	r.PUT("/workspace", h.SaveWorkspace)

	r.GET("/settings", h.ListSettings)
	r.PUT("/settings/:key", h.SetSetting)
	r.DELETE("/settings/:key", h.DeleteSetting)

	r.GET("/saved-queries", h.ListSavedQueries)
	r.POST("/saved-queries", h.SaveSavedQuery)
	r.DELETE("/saved-queries/:id", h.DeleteSavedQuery)

	r.GET("/ai-configs", h.ListAIConfigs)
	r.POST("/ai-configs", h.SaveAIConfig)
	r.DELETE("/ai-configs/:id", h.DeleteAIConfig)
}
