package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachdehooge/grid-dashboard/internal/alert"
	"github.com/Zachdehooge/grid-dashboard/internal/config"
	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/generator"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/Zachdehooge/grid-dashboard/internal/logging"
	"github.com/Zachdehooge/grid-dashboard/internal/metrics"
	"github.com/Zachdehooge/grid-dashboard/internal/poller"
	"github.com/Zachdehooge/grid-dashboard/internal/store"
)

var (
	cfg       = config.Load()
	verbose   bool
	interval  int
	watchMode bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "grid-dashboard",
		Short: "Generate the NWA weather and traffic dashboard",
		Long: `Grid Dashboard polls the NWS observation for the home station and the
iDriveArkansas incident and camera feeds, and generates a static dashboard
(HTML, JSON and GeoJSON) in the output directory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generateDashboard(cmd); err != nil {
				return fmt.Errorf("failed to generate dashboard: %w", err)
			}
			if watchMode {
				return runWatchMode(cmd)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&cfg.StoreDSN, "store", cfg.StoreDSN, "sqlite file path or postgres:// URL for ignored ids and history")
	flags.StringVar(&cfg.Station, "station", cfg.Station, "NWS observation station")
	flags.StringVar(&cfg.EventsURL, "events-url", cfg.EventsURL, "Traffic incident feed URL")
	flags.StringVar(&cfg.CamerasURL, "cameras-url", cfg.CamerasURL, "Traffic camera feed URL")
	flags.IntVarP(&interval, "interval", "i", int(cfg.IncidentInterval/time.Second), "Incident update interval in seconds (minimum 30)")
	flags.DurationVar(&cfg.WeatherInterval, "weather-interval", cfg.WeatherInterval, "Weather update interval")
	flags.DurationVar(&cfg.CameraInterval, "camera-interval", cfg.CameraInterval, "Camera update interval")
	flags.BoolVar(&cfg.SuppressMaintenance, "suppress-maintenance", cfg.SuppressMaintenance, "Hide construction, maintenance and bridge work")
	flags.BoolVar(&cfg.AlertSound, "alert-sound", cfg.AlertSound, "Ring the terminal bell when a new incident appears")

	rootCmd.Flags().StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Output directory for the generated files")
	rootCmd.Flags().BoolVar(&watchMode, "watch", false, "Continuously update the dashboard files")

	addServeCmd(rootCmd)
	addListCmd(rootCmd)
	addIgnoreCmds(rootCmd)
	addWeatherCmd(rootCmd)
	addHistoryCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// settings applies the flag-only values and validates the result.
func settings() (config.Config, error) {
	c := cfg
	// Enforce minimum interval
	if interval < int(config.MinInterval/time.Second) {
		interval = int(config.MinInterval / time.Second)
	}
	c.IncidentInterval = time.Duration(interval) * time.Second
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// app is the wired dashboard shared by the commands.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    *store.Store
	registry *prometheus.Registry
	poller   *poller.Poller
}

func newApp(ctx context.Context, onUpdate func(context.Context, generator.Dashboard)) (*app, error) {
	c, err := settings()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	st, err := store.Open(ctx, c.StoreDSN, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	alerter := alert.Multi{alert.Log{Logger: log}, &alert.Bell{W: os.Stderr}}
	session := incident.NewSession(st, alerter)
	session.SetSuppressMaintenance(c.SuppressMaintenance)
	session.SetAlertsEnabled(c.AlertSound)
	if err := session.Load(ctx); err != nil {
		st.Close()
		log.Sync()
		return nil, err
	}

	p := poller.New(poller.Options{
		Config:   c,
		Client:   fetcher.NewClient(c.HTTPTimeout),
		Session:  session,
		History:  st,
		Metrics:  metrics.New(reg),
		Logger:   log,
		OnUpdate: onUpdate,
	})
	return &app{cfg: c, log: log, store: st, registry: reg, poller: p}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// writeFiles publishes a snapshot to the output directory.
func (a *app) writeFiles(_ context.Context, d generator.Dashboard) {
	if err := generator.WriteFiles(a.cfg.OutputDir, d, a.cfg.Location()); err != nil {
		a.log.Error("failed to write dashboard files", zap.String("dir", a.cfg.OutputDir), zap.Error(err))
	}
}

// generateDashboard polls every feed once and writes the dashboard files.
func generateDashboard(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		cmd.Println("Fetching weather, incidents and cameras...")
	}
	if err := a.poller.Refresh(ctx); err != nil {
		// Feed failures are shown on the dashboard itself.
		a.log.Warn("some feeds failed", zap.Error(err))
	}

	if verbose {
		cmd.Println(fmt.Sprintf("Generating dashboard in %s...", a.cfg.OutputDir))
	}
	if err := generator.WriteFiles(a.cfg.OutputDir, a.poller.Snapshot(), a.cfg.Location()); err != nil {
		return err
	}
	cmd.Println(fmt.Sprintf("Dashboard saved to %s", filepath.Join(a.cfg.OutputDir, generator.HTMLFile)))
	return nil
}

// runWatchMode keeps the dashboard files current until interrupted.
func runWatchMode(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var a *app
	a, err := newApp(ctx, func(ctx context.Context, d generator.Dashboard) { a.writeFiles(ctx, d) })
	if err != nil {
		return err
	}
	defer a.Close()

	cmd.Println(fmt.Sprintf("Watch mode activated. Updating incidents every %s. Press Ctrl+C to stop.", a.cfg.IncidentInterval))
	cmd.Println(fmt.Sprintf("Open at file://%s", absPath(filepath.Join(a.cfg.OutputDir, generator.HTMLFile))))
	a.poller.Run(ctx)
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
