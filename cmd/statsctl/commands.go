package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/app"
	corecfg "github.com/smart-student/stats-engine/internal/core/config"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/smart-student/stats-engine/internal/core/storage/postgres"
	"github.com/smart-student/stats-engine/internal/migrations"
	"github.com/smart-student/stats-engine/internal/projection"
	"github.com/spf13/cobra"
)

// errRebuildFailed makes the process exit non-zero after the result was printed.
var errRebuildFailed = errors.New("rebuild failed")

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "statsctl",
		Short:         "Rebuild and inspect the school statistics cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	cmd.AddCommand(
		newRebuildCmd(opts),
		newStatusCmd(opts),
		newSummaryCmd(opts),
		newSweepCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// withApp loads the config and builds the stores. Background components are
// never started from the CLI.
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app.App) error) error {
	cfg, err := corecfg.Load(opts.configPath)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// resolveYear maps 0 to the current academic year.
func resolveYear(a *app.App, year int) (int, error) {
	if year == 0 {
		return time.Now().In(a.Location).Year(), nil
	}
	if err := v1.ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	var (
		year    int
		what    []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute and store the statistics of one year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := v1.ParseSelection(what)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				y, err := resolveYear(a, year)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				res := a.Controller.Rebuild(ctx, y, sel, v1.SurfaceCLI)
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return errRebuildFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "academic year (default: current year)")
	cmd.Flags().StringSliceVarP(&what, "what", "w", nil, "sections to rebuild: all, attendance, grades")
	cmd.Flags().DurationVar(&timeout, "timeout", 9*time.Minute, "maximum time to wait for the rebuild")
	return cmd
}

type statusOutput struct {
	Year    int                `json:"year"`
	Cache   *v1.StatsCache     `json:"cache"`
	Control *v1.RebuildControl `json:"control"`
	Message string             `json:"message,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cached statistics and rebuild control of one year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				y, err := resolveYear(a, year)
				if err != nil {
					return err
				}
				out := statusOutput{Year: y}

				cache, err := a.Cache.Read(cmd.Context(), y)
				switch {
				case errors.Is(err, storage.ErrNotFound):
					out.Message = "no cached statistics"
				case err != nil:
					return fmt.Errorf("read stats cache: %w", err)
				default:
					out.Cache = cache
				}

				ctl, err := a.Control.Get(cmd.Context(), y)
				switch {
				case err == nil:
					out.Control = ctl
				case !errors.Is(err, storage.ErrNotFound):
					return fmt.Errorf("read rebuild control: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "academic year (default: current year)")
	return cmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var req projection.SummaryRequest
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary served by GET /api/stats/summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				resp, err := a.Projection.Summary(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().IntVarP(&req.Year, "year", "y", 0, "academic year (default: current year)")
	cmd.Flags().BoolVar(&req.IncludeMonthly, "monthly", false, "include the monthly breakdown")
	cmd.Flags().BoolVar(&req.IncludeCourses, "courses", false, "include the course breakdown")
	return cmd
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the rebuilds suppressed by the write-trigger debounce",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				started, err := a.Controller.SweepPending(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"started": started})
			})
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations and print the schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := corecfg.Load(opts.configPath)
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.RunMigrations(db, true); err != nil {
				return err
			}
			version, dirty, err := migrations.Version(db)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"version": version, "dirty": dirty})
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
