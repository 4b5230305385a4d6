// Package config defines the querydeck configuration. Values come from an
// optional config file and QUERYDECK_* environment variables via viper;
// defaults come from struct tags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

// Configuration is the root config.
type Configuration struct {
	Server    Server  `mapstructure:"server"`
	Engine    Engine  `mapstructure:"engine"`
	Storage   Storage `mapstructure:"storage"`
	LogLevel  string  `mapstructure:"log_level" default:"info"`
	LogFormat string  `mapstructure:"log_format" default:"console"`
}

// Server holds the HTTP surface settings.
type Server struct {
	ServerMode string `mapstructure:"mode" default:"dev"`
	HTTPPort   int    `mapstructure:"http_port" default:"8000"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// Engine holds the lifecycle tuning.
type Engine struct {
	NumWorkers        int  `mapstructure:"num_workers" default:"3"`
	MaxOpenAttempts   uint `mapstructure:"max_open_attempts" default:"4"`
	OpenBackoffMillis int  `mapstructure:"open_backoff_millis" default:"1500"`
	SettleDelayMillis int  `mapstructure:"settle_delay_millis" default:"2000"`
	AutosaveMillis    int  `mapstructure:"autosave_millis" default:"2000"`
	HistoryCapacity   int  `mapstructure:"history_capacity" default:"15"`
}

// Storage holds the persistence locations.
type Storage struct {
	DataFolder string `mapstructure:"data_folder" default:"./data"`
}

// PrimaryPath is the DuckDB storage location.
func (s Storage) PrimaryPath() string {
	return filepath.Join(s.DataFolder, "querydeck.db")
}

// FallbackPath is the key/value store used when the primary cannot open.
func (s Storage) FallbackPath() string {
	return filepath.Join(s.DataFolder, "fallback.db")
}

// KeystorePath holds the profile keys, apart from the data they protect.
func (s Storage) KeystorePath() string {
	return filepath.Join(s.DataFolder, "keys.json")
}

func (e Engine) OpenBackoff() time.Duration {
	return time.Duration(e.OpenBackoffMillis) * time.Millisecond
}

func (e Engine) SettleDelay() time.Duration {
	return time.Duration(e.SettleDelayMillis) * time.Millisecond
}

func (e Engine) AutosaveWindow() time.Duration {
	return time.Duration(e.AutosaveMillis) * time.Millisecond
}

// Load reads configuration from configFile (optional) and the environment.
func Load(configFile string) (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("QUERYDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so every
	// key is bound explicitly.
	for _, key := range []string{
		"server.mode", "server.http_port", "server.jwt_secret",
		"engine.num_workers", "engine.max_open_attempts",
		"engine.open_backoff_millis", "engine.settle_delay_millis",
		"engine.autosave_millis", "engine.history_capacity",
		"storage.data_folder",
		"log_level", "log_format",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}
