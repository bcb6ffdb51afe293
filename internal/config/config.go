// Package config loads runtime configuration from defaults, an optional
// config file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables, e.g. STRAVA_DASHBOARD_HTTP_PORT
const EnvPrefix = "STRAVA_DASHBOARD"

// Config holds all configuration for the application
type Config struct {
	DBPath    string          `mapstructure:"db_path"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Strava    StravaConfig    `mapstructure:"strava"`
	Session   SessionConfig   `mapstructure:"session"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// LogConfig selects the log encoding ("console" or "json")
type LogConfig struct {
	Format string `mapstructure:"format"`
}

// HTTPConfig configures the JSON API; port 0 disables it
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// MCPConfig configures the MCP server. Port 0 serves over stdio.
type MCPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SyncConfig controls the background workers
type SyncConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	Interval             time.Duration `mapstructure:"interval"`
	TokenRefreshInterval time.Duration `mapstructure:"token_refresh_interval"`
}

// StravaConfig holds the API application credentials
type StravaConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// RedirectURI overrides the /auth/login callback derived from the request
	RedirectURI  string `mapstructure:"redirect_uri"`
	CallbackAddr string `mapstructure:"callback_addr"`
}

// SessionConfig holds the key used to sign OAuth state values
type SessionConfig struct {
	Secret string `mapstructure:"secret"`
}

// DashboardConfig holds the initial display preferences. Stored preferences
// take precedence once the user has changed them.
type DashboardConfig struct {
	UnitSystem  string `mapstructure:"unit_system"`
	DateRange   string `mapstructure:"date_range"`
	HeatmapMode string `mapstructure:"heatmap_mode"`
}

// Load reads configuration from defaults, the config file and environment
// variables, in increasing precedence. An empty configFile searches the
// working directory and the user config directory for config.yaml; a missing
// file is not an error unless it was named explicitly.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// flat names used by earlier deployments
	_ = v.BindEnv("strava.client_id", "STRAVA_CLIENT_ID")
	_ = v.BindEnv("strava.client_secret", "STRAVA_CLIENT_SECRET")
	_ = v.BindEnv("session.secret", "SESSION_SECRET")
	_ = v.BindEnv("http.port", "PORT")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "strava-dashboard"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "strava_dashboard.db")
	v.SetDefault("log.format", "console")
	v.SetDefault("http.port", 8080)
	v.SetDefault("mcp.enabled", true)
	v.SetDefault("mcp.port", 0)
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", 15*time.Minute)
	v.SetDefault("sync.token_refresh_interval", 30*time.Minute)
	v.SetDefault("strava.client_id", "")
	v.SetDefault("strava.client_secret", "")
	v.SetDefault("strava.redirect_uri", "")
	v.SetDefault("strava.callback_addr", "localhost:8089")
	v.SetDefault("session.secret", "")
	v.SetDefault("dashboard.unit_system", "metric")
	v.SetDefault("dashboard.date_range", "all")
	v.SetDefault("dashboard.heatmap_mode", "all")
}

// Validate checks value ranges. Credentials are optional here: the
// interactive login prompts for them when they are missing.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.MCP.Port < 0 || c.MCP.Port > 65535 {
		return fmt.Errorf("mcp.port out of range: %d", c.MCP.Port)
	}
	if c.MCP.Enabled && c.MCP.Port != 0 && c.MCP.Port == c.HTTP.Port {
		return fmt.Errorf("http.port and mcp.port must differ (both %d)", c.HTTP.Port)
	}
	if c.Sync.Enabled {
		if c.Sync.Interval < time.Minute {
			return fmt.Errorf("sync.interval must be at least 1m, got %s", c.Sync.Interval)
		}
		if c.Sync.TokenRefreshInterval < time.Minute {
			return fmt.Errorf("sync.token_refresh_interval must be at least 1m, got %s", c.Sync.TokenRefreshInterval)
		}
	}
	return nil
}
