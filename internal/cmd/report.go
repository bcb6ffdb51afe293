package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/strava-dashboard/internal/dashboard"
	"github.com/joshdurbin/strava-dashboard/internal/db"
)

var (
	reportRange       string
	reportStart       string
	reportEnd         string
	reportUnits       string
	reportGranularity string
	reportMode        string
	reportField       string
	reportWindow      int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard report as JSON from the local database",
	Long: `Print totals, sport breakdown, running stats, histogram, trend, daily
timeline and insights for a date range. Reads the local database only and
never contacts Strava.

Examples:
  strava-dashboard report --range ytd --units imperial
  strava-dashboard report --start 2025-01-01 --end 2025-03-31 --granularity month
  strava-dashboard report --range last90 --granularity day --field pace --mode running`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sqlDB, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return err
		}

		svc, err := newDashboard(ctx, cfg, db.New(sqlDB))
		if err != nil {
			return err
		}

		opts, err := dashboard.ParseReportOptions(reportGranularity, reportMode, reportField, reportWindow)
		if err != nil {
			return err
		}
		opts.Surface = "cli"

		snap := svc.Store().Snapshot()
		form := dashboard.PreferenceForm{
			UnitSystem: reportUnits,
			DateRange:  reportRange,
			Start:      reportStart,
			End:        reportEnd,
		}
		prefs, err := form.Apply(snap.Preferences)
		if err != nil {
			return err
		}
		snap = snap.WithPreferences(prefs)

		report := dashboard.BuildReport(snap, snap.Now, opts)
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRange, "range", "", "date range: all, ytd, lastN, lastNmonths or custom (default: saved preference)")
	reportCmd.Flags().StringVar(&reportStart, "start", "", "custom range start (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "custom range end, inclusive (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportUnits, "units", "", "unit system: metric or imperial (default: saved preference)")
	reportCmd.Flags().StringVar(&reportGranularity, "granularity", "week", "trend buckets: day, week, month or year")
	reportCmd.Flags().StringVar(&reportMode, "mode", "all", "trend activities: all or running")
	reportCmd.Flags().StringVar(&reportField, "field", "distance", "smoothed trend series: count, distance, time or pace")
	reportCmd.Flags().IntVar(&reportWindow, "window", 0, "moving average window for daily trends (default 7)")
}
