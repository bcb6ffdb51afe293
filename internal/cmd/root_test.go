package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/joshdurbin/strava-dashboard/internal/config"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringVar(&dbPath, "db", "strava_dashboard.db", "")
	fs.StringVar(&logFormat, "log-format", "console", "")
	fs.IntVar(&httpPort, "http-port", 8080, "")
	fs.IntVarP(&mcpPort, "port", "p", 0, "")
	fs.BoolVar(&noMCP, "no-mcp", false, "")
	fs.DurationVar(&syncInterval, "sync-interval", 15*time.Minute, "")
	fs.DurationVar(&tokenRefreshInterval, "token-refresh-interval", 30*time.Minute, "")
	fs.BoolVar(&noSync, "no-sync", false, "")
	return fs
}

// shares the package-level flag variables, so not parallel
func TestApplyFlags(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			DBPath: "from-config.db",
			Log:    config.LogConfig{Format: "json"},
			HTTP:   config.HTTPConfig{Port: 9000},
			MCP:    config.MCPConfig{Enabled: true, Port: 9001},
			Sync: config.SyncConfig{
				Enabled:              true,
				Interval:             time.Hour,
				TokenRefreshInterval: time.Hour,
			},
		}
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, c *config.Config)
	}{
		{
			name: "no flags keeps config",
			args: nil,
			check: func(t *testing.T, c *config.Config) {
				if c.DBPath != "from-config.db" || c.HTTP.Port != 9000 || c.MCP.Port != 9001 {
					t.Errorf("config should be unchanged, got %+v", c)
				}
				if !c.Sync.Enabled || !c.MCP.Enabled {
					t.Error("sync and MCP should stay enabled")
				}
			},
		},
		{
			name: "flags override",
			args: []string{"--db", "cli.db", "--http-port", "0", "-p", "7000", "--sync-interval", "5m", "--log-format", "console"},
			check: func(t *testing.T, c *config.Config) {
				if c.DBPath != "cli.db" {
					t.Errorf("expected db cli.db, got %q", c.DBPath)
				}
				if c.HTTP.Port != 0 {
					t.Errorf("expected http port 0, got %d", c.HTTP.Port)
				}
				if c.MCP.Port != 7000 {
					t.Errorf("expected mcp port 7000, got %d", c.MCP.Port)
				}
				if c.Sync.Interval != 5*time.Minute {
					t.Errorf("expected sync interval 5m, got %v", c.Sync.Interval)
				}
				if c.Sync.TokenRefreshInterval != time.Hour {
					t.Errorf("token refresh interval should be unchanged, got %v", c.Sync.TokenRefreshInterval)
				}
				if c.Log.Format != "console" {
					t.Errorf("expected console log format, got %q", c.Log.Format)
				}
			},
		},
		{
			name: "offline without mcp",
			args: []string{"--no-sync", "--no-mcp"},
			check: func(t *testing.T, c *config.Config) {
				if c.Sync.Enabled {
					t.Error("--no-sync should disable sync")
				}
				if c.MCP.Enabled {
					t.Error("--no-mcp should disable MCP")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFlagSet()
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parsing flags: %v", err)
			}
			c := base()
			applyFlags(fs, c)
			tt.check(t, c)
		})
	}
}
