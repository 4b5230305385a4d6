package models

import "fmt"

// Scope identifies which backend family a connection descriptor targets.
type Scope string

const (
	ScopeEmbedded   Scope = "embedded"
	ScopePersistent Scope = "persistent"
	ScopeRemote     Scope = "remote"
)

func ParseScope(s string) (Scope, error) {
	switch s {
	case "embedded":
		return ScopeEmbedded, nil
	case "persistent":
		return ScopePersistent, nil
	case "remote":
		return ScopeRemote, nil
	default:
		return "", fmt.Errorf("invalid connection scope: %s", s)
	}
}

// Environment records where a descriptor came from.
type Environment string

const (
	EnvironmentApp     Environment = "app"
	EnvironmentEnv     Environment = "env"
	EnvironmentBuiltIn Environment = "builtin"
)

// AuthMode selects how the remote protocol authenticates.
type AuthMode string

const (
	AuthModeNone     AuthMode = "none"
	AuthModePassword AuthMode = "password"
	AuthModeAPIKey   AuthMode = "api_key"
)

func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "", "none":
		return AuthModeNone, nil
	case "password":
		return AuthModePassword, nil
	case "api_key":
		return AuthModeAPIKey, nil
	default:
		return "", fmt.Errorf("invalid auth mode: %s", s)
	}
}

// ConnectionDescriptor describes one backend a user can route queries to.
// Descriptors are immutable once created except via an explicit update and are
// never mutated by query execution.
type ConnectionDescriptor struct {
	ID          string
	Name        string
	Scope       Scope
	Environment Environment
	Host        string
	Port        int
	Path        string
	User        string
	Password    string
	APIKey      string
	AuthMode    AuthMode
}

// Address returns the value used for exclusive-access tracking and remote
// requests: the database file path for persistent scope, host:port otherwise.
func (d ConnectionDescriptor) Address() string {
	if d.Scope == ScopePersistent {
		return d.Path
	}
	if d.Port > 0 {
		return fmt.Sprintf("%s:%d", d.Host, d.Port)
	}
	return d.Host
}

// Validate checks the fields required by the descriptor's scope.
func (d ConnectionDescriptor) Validate() error {
	switch d.Scope {
	case ScopeEmbedded:
		return nil
	case ScopePersistent:
		if d.Path == "" {
			return fmt.Errorf("persistent connection %q has no database path", d.Name)
		}
		return nil
	case ScopeRemote:
		if d.Host == "" {
			return fmt.Errorf("remote connection %q has no host", d.Name)
		}
		return nil
	default:
		return fmt.Errorf("invalid connection scope: %s", d.Scope)
	}
}
