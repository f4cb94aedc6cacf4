// Package metrics exposes poll and pipeline counters to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grid_dashboard"

// Feed names used as the "feed" label.
const (
	FeedWeather   = "weather"
	FeedIncidents = "incidents"
	FeedCameras   = "cameras"
)

type Metrics struct {
	polls           *prometheus.CounterVec
	pollDuration    *prometheus.HistogramVec
	activeIncidents prometheus.Gauge
	cameras         prometheus.Gauge
	ignored         prometheus.Gauge
	newIncidents    prometheus.Counter
}

// New registers the dashboard collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Upstream polls by feed and outcome.",
		}, []string{"feed", "outcome"}),
		pollDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent fetching and processing a feed.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
		activeIncidents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_incidents",
			Help:      "Incidents shown after filtering.",
		}),
		cameras: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cameras",
			Help:      "Cameras in the current nearest-camera set.",
		}),
		ignored: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ignored_incidents",
			Help:      "Incident ids the user has ignored.",
		}),
		newIncidents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_incident_alerts_total",
			Help:      "Runs that surfaced an incident id not seen in the previous run.",
		}),
	}
}

// Outcome classifies a poll error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, fetcher.ErrNetwork):
		return "network"
	case errors.Is(err, incident.ErrShapeMismatch):
		return "shape"
	default:
		return "error"
	}
}

// ObservePoll records one poll of feed that started at start.
func (m *Metrics) ObservePoll(feed string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(feed, Outcome(err)).Inc()
	m.pollDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
}

// ObserveRun records the output of a pipeline run.
func (m *Metrics) ObserveRun(res incident.Result) {
	if m == nil {
		return
	}
	m.activeIncidents.Set(float64(res.Total))
	if res.New {
		m.newIncidents.Inc()
	}
}

func (m *Metrics) SetCameras(n int) {
	if m != nil {
		m.cameras.Set(float64(n))
	}
}

func (m *Metrics) SetIgnored(n int) {
	if m != nil {
		m.ignored.Set(float64(n))
	}
}
