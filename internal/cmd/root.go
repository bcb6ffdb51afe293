package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joshdurbin/strava-dashboard/internal/config"
	"github.com/joshdurbin/strava-dashboard/internal/logging"
)

var (
	verbosity            int
	configFile           string
	dbPath               string
	logFormat            string
	httpPort             int
	mcpPort              int
	syncInterval         time.Duration
	tokenRefreshInterval time.Duration
	noSync               bool
	noMCP                bool
	forceReauth          bool
)

// cfg is loaded once per invocation by PersistentPreRunE
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "strava-dashboard",
	Short: "Strava Dashboard - totals, trends and streaks from your Strava activities",
	Long: `Strava Dashboard syncs your Strava activities to a local SQLite database
and serves dashboard statistics over a JSON API and the Model Context Protocol (MCP).

The server runs with:
- Automatic authentication via OAuth (prompts on first run)
- Background token refresh to keep authentication valid
- Periodic activity sync from Strava
- HTTP API with totals, histograms, trends and the daily heatmap
- MCP server for AI tool access

On first run, you will be prompted for your Strava API credentials unless
they are set in config.yaml or STRAVA_CLIENT_ID / STRAVA_CLIENT_SECRET.
Get these from https://www.strava.com/settings/api

Use --force-reauth to re-enter credentials and re-authenticate.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		applyFlags(cmd.Flags(), loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}

		format, err := logging.ParseFormat(loaded.Log.Format)
		if err != nil {
			return err
		}
		// Set up logging based on verbosity before any command runs
		logging.SetupWithWriter(os.Stderr, logging.Level(verbosity), format)

		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context(), cfg, forceReauth)
	},
}

func init() {
	// Logging verbosity
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for debug, -vv for trace with HTTP headers)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log encoding: console or json")

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml or $XDG_CONFIG_HOME/strava-dashboard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "strava_dashboard.db", "path to SQLite database file")

	// Runtime settings as CLI flags
	rootCmd.Flags().IntVar(&httpPort, "http-port", 8080, "HTTP API port (0 disables the API)")
	rootCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "MCP server port (0 for stdio mode)")
	rootCmd.Flags().BoolVar(&noMCP, "no-mcp", false, "do not start the MCP server")
	rootCmd.Flags().DurationVar(&syncInterval, "sync-interval", 15*time.Minute, "interval between activity syncs")
	rootCmd.Flags().DurationVar(&tokenRefreshInterval, "token-refresh-interval", 30*time.Minute, "interval between token refresh checks")

	// Offline mode
	rootCmd.Flags().BoolVar(&noSync, "no-sync", false, "serve the local database only without Strava API sync (offline mode)")

	// Force re-authentication
	rootCmd.Flags().BoolVar(&forceReauth, "force-reauth", false, "force OAuth re-authentication, clearing existing tokens")

	rootCmd.AddCommand(reportCmd)
}

// applyFlags overrides configuration values with flags set on the command line
func applyFlags(flags *pflag.FlagSet, c *config.Config) {
	if flags.Changed("db") {
		c.DBPath = dbPath
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if flags.Changed("http-port") {
		c.HTTP.Port = httpPort
	}
	if flags.Changed("port") {
		c.MCP.Port = mcpPort
	}
	if flags.Changed("no-mcp") {
		c.MCP.Enabled = !noMCP
	}
	if flags.Changed("sync-interval") {
		c.Sync.Interval = syncInterval
	}
	if flags.Changed("token-refresh-interval") {
		c.Sync.TokenRefreshInterval = tokenRefreshInterval
	}
	if flags.Changed("no-sync") {
		c.Sync.Enabled = !noSync
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
