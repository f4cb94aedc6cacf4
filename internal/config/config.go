// Package config holds the dashboard settings: upstream endpoints, refresh
// periods and local paths. Defaults can be overridden with GRID_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Zachdehooge/grid-dashboard/internal/incident"
)

// MinInterval is the shortest refresh period accepted for any feed.
const MinInterval = 30 * time.Second

type Config struct {
	Station        string
	WeatherAPIBase string
	RadarSite      string
	TimeZone       string

	EventsURL  string
	CamerasURL string
	MapURL     string
	Home       incident.Location

	WeatherInterval  time.Duration
	IncidentInterval time.Duration
	CameraInterval   time.Duration
	HTTPTimeout      time.Duration

	OutputDir  string
	StoreDSN   string
	ListenAddr string

	SuppressMaintenance bool
	AlertSound          bool
}

// Default returns the stock Northwest Arkansas configuration.
func Default() Config {
	return Config{
		Station:        "KASG",
		WeatherAPIBase: "https://api.weather.gov",
		RadarSite:      "KSRX",
		TimeZone:       "America/Chicago",

		EventsURL:  "https://www.idrivearkansas.com/api/events",
		CamerasURL: "https://www.idrivearkansas.com/api/cameras",
		MapURL:     "https://www.idrivearkansas.com/map",
		Home:       incident.Location{Lat: 36.1867, Lon: -94.1288},

		WeatherInterval:  5 * time.Minute,
		IncidentInterval: 30 * time.Second,
		CameraInterval:   10 * time.Minute,
		HTTPTimeout:      15 * time.Second,

		OutputDir:  ".",
		StoreDSN:   "grid-dashboard.db",
		ListenAddr: ":8080",

		SuppressMaintenance: true,
		AlertSound:          false,
	}
}

// Load returns Default with environment overrides applied.
func Load() Config {
	c := Default()
	c.Station = getEnv("GRID_NWS_STATION", c.Station)
	c.WeatherAPIBase = getEnv("GRID_NWS_API_BASE", c.WeatherAPIBase)
	c.RadarSite = getEnv("GRID_RADAR_SITE", c.RadarSite)
	c.TimeZone = getEnv("GRID_TIMEZONE", c.TimeZone)

	c.EventsURL = getEnv("GRID_EVENTS_URL", c.EventsURL)
	c.CamerasURL = getEnv("GRID_CAMERAS_URL", c.CamerasURL)
	c.MapURL = getEnv("GRID_MAP_URL", c.MapURL)
	c.Home.Lat = getEnvFloat("GRID_HOME_LAT", c.Home.Lat)
	c.Home.Lon = getEnvFloat("GRID_HOME_LON", c.Home.Lon)

	c.WeatherInterval = getEnvDuration("GRID_WEATHER_INTERVAL", c.WeatherInterval)
	c.IncidentInterval = getEnvDuration("GRID_INCIDENT_INTERVAL", c.IncidentInterval)
	c.CameraInterval = getEnvDuration("GRID_CAMERA_INTERVAL", c.CameraInterval)
	c.HTTPTimeout = getEnvDuration("GRID_HTTP_TIMEOUT", c.HTTPTimeout)

	c.OutputDir = getEnv("GRID_OUTPUT_DIR", c.OutputDir)
	c.StoreDSN = getEnv("GRID_STORE", c.StoreDSN)
	c.ListenAddr = getEnv("GRID_LISTEN", c.ListenAddr)

	c.SuppressMaintenance = getEnvBool("GRID_SUPPRESS_MAINTENANCE", c.SuppressMaintenance)
	c.AlertSound = getEnvBool("GRID_ALERT_SOUND", c.AlertSound)
	return c
}

// Validate checks the settings the poller depends on.
func (c Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"weather interval":  c.WeatherInterval,
		"incident interval": c.IncidentInterval,
		"camera interval":   c.CameraInterval,
	} {
		if d < MinInterval {
			errs = append(errs, fmt.Errorf("%s %s is below the %s minimum", name, d, MinInterval))
		}
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.EventsURL == "" || c.CamerasURL == "" || c.WeatherAPIBase == "" {
		errs = append(errs, errors.New("events, cameras and weather endpoints are required"))
	}
	if c.Station == "" {
		errs = append(errs, errors.New("NWS station is required"))
	}
	if !c.Home.Valid() {
		errs = append(errs, fmt.Errorf("home location %v is out of range", c.Home))
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err))
	}
	return errors.Join(errs...)
}

// Location returns the display time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are seconds, like the --interval flags.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return def
}
