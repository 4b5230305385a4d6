// Package v1 defines the request and response shapes of the HTTP API.
package v1

import (
	"github.com/querydeck/querydeck/internal/models"
)

type ExecuteRequest struct {
	Query      string `json:"query" binding:"required"`
	HistoryKey string `json:"historyKey,omitempty"`
}

type ConnectionRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" binding:"required"`
	Scope       string `json:"scope" binding:"required"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Path        string `json:"path,omitempty"`
	User        string `json:"user,omitempty"`
	Password    string `json:"password,omitempty"`
	APIKey      string `json:"apiKey,omitempty"`
	AuthMode    string `json:"authMode,omitempty"`
}

type ConnectionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Scope       string `json:"scope"`
	Environment string `json:"environment"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Path        string `json:"path,omitempty"`
	User        string `json:"user,omitempty"`
	AuthMode    string `json:"authMode"`
}

// NewConnectionResponse maps a descriptor to its API shape. Credentials never
// leave the server.
func NewConnectionResponse(c models.ConnectionDescriptor) ConnectionResponse {
	return ConnectionResponse{
		ID:          c.ID,
		Name:        c.Name,
		Scope:       string(c.Scope),
		Environment: string(c.Environment),
		Host:        c.Host,
		Port:        c.Port,
		Path:        c.Path,
		User:        c.User,
		AuthMode:    string(c.AuthMode),
	}
}

// ToDescriptor maps an API request to the domain descriptor.
func (r ConnectionRequest) ToDescriptor() (models.ConnectionDescriptor, error) {
	scope, err := models.ParseScope(r.Scope)
	if err != nil {
		return models.ConnectionDescriptor{}, err
	}
	authMode, err := models.ParseAuthMode(r.AuthMode)
	if err != nil {
		return models.ConnectionDescriptor{}, err
	}
	return models.ConnectionDescriptor{
		ID:       r.ID,
		Name:     r.Name,
		Scope:    scope,
		Host:     r.Host,
		Port:     r.Port,
		Path:     r.Path,
		User:     r.User,
		Password: r.Password,
		APIKey:   r.APIKey,
		AuthMode: authMode,
	}, nil
}

type ProfileRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password,omitempty"`
}

type ProfileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Profile ProfileResponse `json:"profile"`
}

type ImportRequest struct {
	Table  string `json:"table" binding:"required"`
	Format string `json:"format" binding:"required"`
	// Data is the base64-encoded file buffer.
	Data string `json:"data" binding:"required"`
}

type ImportResponse struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

type SavedQueryRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" binding:"required"`
	Query string `json:"query" binding:"required"`
}

type SettingRequest struct {
	Value string `json:"value"`
}

type AIConfigRequest struct {
	ID       string            `json:"id,omitempty"`
	Provider string            `json:"provider" binding:"required"`
	Model    string            `json:"model,omitempty"`
	APIKey   string            `json:"apiKey,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
