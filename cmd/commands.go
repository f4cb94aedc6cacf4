package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/generator"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/Zachdehooge/grid-dashboard/internal/server"
)

// addServeCmd adds a 'serve' subcommand that serves the live dashboard
func addServeCmd(rootCmd *cobra.Command) {
	var openBrowser, writeFiles bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var a *app
			var onUpdate func(context.Context, generator.Dashboard)
			if writeFiles {
				onUpdate = func(ctx context.Context, d generator.Dashboard) { a.writeFiles(ctx, d) }
			}
			a, err := newApp(ctx, onUpdate)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(a.poller, server.Options{
				Metrics:  promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
				Logger:   a.log,
				Location: a.cfg.Location(),
			})

			go a.poller.Run(ctx)

			url := "http://" + a.cfg.ListenAddr
			if strings.HasPrefix(a.cfg.ListenAddr, ":") {
				url = "http://localhost" + a.cfg.ListenAddr
			}
			cmd.Println(fmt.Sprintf("Serving dashboard at %s. Press Ctrl+C to stop.", url))
			if openBrowser {
				if err := browser.OpenURL(url); err != nil {
					a.log.Warn("failed to open browser", zap.Error(err))
				}
			}
			return srv.ListenAndServe(ctx, a.cfg.ListenAddr)
		},
	}
	serveCmd.Flags().StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "Open the dashboard in a browser")
	serveCmd.Flags().BoolVar(&writeFiles, "write-files", false, "Also write the dashboard files to the output directory")
	serveCmd.Flags().StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Output directory used with --write-files")

	rootCmd.AddCommand(serveCmd)
}

var classColors = map[incident.Class]*color.Color{
	incident.ClassCrash:        color.New(color.FgRed, color.Bold),
	incident.ClassConstruction: color.New(color.FgYellow),
	incident.ClassClosure:      color.New(color.FgMagenta),
	incident.ClassWeather:      color.New(color.FgCyan),
	incident.ClassOther:        color.New(color.FgWhite),
}

// addListCmd adds a 'list' subcommand to show incidents without generating HTML
func addListCmd(rootCmd *cobra.Command) {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active traffic incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.poller.RefreshCameras(ctx); err != nil {
				a.log.Warn("camera fetch failed", zap.Error(err))
			}
			if err := a.poller.RefreshIncidents(ctx); err != nil && !errors.Is(err, incident.ErrShapeMismatch) {
				return fmt.Errorf("failed to fetch incidents: %w", err)
			}

			d := a.poller.Snapshot()
			if d.Total == 0 {
				cmd.Println("No active incidents.")
				return nil
			}

			cmd.Println(fmt.Sprintf("Active Incidents (%d):", d.Total))
			for _, r := range d.Incidents {
				paint := classColors[r.Class]
				if paint == nil {
					paint = classColors[incident.ClassOther]
				}
				cmd.Println("---")
				if r.HasID {
					cmd.Println(fmt.Sprintf("ID: %s", r.ID))
				}
				cmd.Println(fmt.Sprintf("Type: %s", paint.Sprint(r.Category)))
				cmd.Println(fmt.Sprintf("County: %s", r.County))
				cmd.Println(fmt.Sprintf("Route: %s (%s)", r.Route.Route, r.Route.RouteType))
				cmd.Println(fmt.Sprintf("Description: %s", r.Description))
				if r.NearestPOI != nil {
					cmd.Println(fmt.Sprintf("Nearest Camera: %s (%.2f Miles)", r.NearestPOI.POI.Name, r.NearestPOI.DistanceMiles))
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(listCmd)
}

// addIgnoreCmds adds the 'ignore' and 'clear-ignored' subcommands
func addIgnoreCmds(rootCmd *cobra.Command) {
	ignoreCmd := &cobra.Command{
		Use:   "ignore <id>...",
		Short: "Hide incidents from the dashboard by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			session := a.poller.Session()
			for _, id := range args {
				if err := session.Ignore(ctx, id); err != nil {
					return err
				}
				cmd.Println(fmt.Sprintf("Ignoring incident %s", id))
			}
			cmd.Println(fmt.Sprintf("%d incident(s) ignored.", session.Ignored().Len()))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear-ignored",
		Short: "Show all previously ignored incidents again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.poller.Session().ClearIgnored(ctx); err != nil {
				return err
			}
			cmd.Println("Ignore list cleared.")
			return nil
		},
	}

	rootCmd.AddCommand(ignoreCmd, clearCmd)
}

// addWeatherCmd adds a 'weather' subcommand printing the current conditions
func addWeatherCmd(rootCmd *cobra.Command) {
	weatherCmd := &cobra.Command{
		Use:   "weather",
		Short: "Show the current conditions at the home station",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := settings()
			if err != nil {
				return err
			}
			client := fetcher.NewClient(c.HTTPTimeout)
			obs, err := client.FetchObservation(cmd.Context(), c.WeatherAPIBase, c.Station)
			if err != nil {
				return fmt.Errorf("failed to fetch observation: %w", err)
			}
			w := obs.Display(time.Now(), c.Location(), c.RadarSite)

			cmd.Println(fmt.Sprintf("Current Conditions (%s):", c.Station))
			cmd.Println(fmt.Sprintf("Temperature: %s°F %s", w.Temperature, w.FeelsLike))
			cmd.Println(fmt.Sprintf("Conditions: %s", w.Conditions))
			cmd.Println(fmt.Sprintf("Wind: %s %s (gusts %s)", w.WindDirection, w.Wind, w.Gusts))
			cmd.Println(fmt.Sprintf("Humidity: %s", w.Humidity))
			cmd.Println(fmt.Sprintf("Dewpoint: %s (depression %s)", w.Dewpoint, w.DewDepression))
			cmd.Println(fmt.Sprintf("Visibility: %s", w.Visibility))
			cmd.Println(fmt.Sprintf("Pressure: %s", w.Pressure))
			cmd.Println(w.LastUpdate)
			return nil
		},
	}

	rootCmd.AddCommand(weatherCmd)
}

// addHistoryCmd adds a 'history' subcommand printing the recorded incident counts
func addHistoryCmd(rootCmd *cobra.Command) {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recent incident counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			samples, err := a.store.History(ctx)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				cmd.Println("No history recorded yet.")
				return nil
			}
			loc := a.cfg.Location()
			for _, s := range samples {
				cmd.Println(fmt.Sprintf("%s  %3d %s", s.Timestamp.In(loc).Format("Jan 2 3:04:05 PM"), s.Count, strings.Repeat("#", s.Count)))
			}
			return nil
		},
	}

	rootCmd.AddCommand(historyCmd)
}
