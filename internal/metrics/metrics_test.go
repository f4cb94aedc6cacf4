package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "network", Outcome(fmt.Errorf("poll: %w", fetcher.ErrNetwork)))
	assert.Equal(t, "shape", Outcome(incident.ErrShapeMismatch))
	assert.Equal(t, "error", Outcome(errors.New("other")))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePoll(FeedIncidents, time.Now(), nil)
	m.ObservePoll(FeedIncidents, time.Now(), fetcher.ErrNetwork)
	m.ObserveRun(incident.Result{Total: 4, New: true})
	m.SetCameras(12)
	m.SetIgnored(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues(FeedIncidents, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues(FeedIncidents, "network")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.activeIncidents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.newIncidents))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP grid_dashboard_cameras Cameras in the current nearest-camera set.
# TYPE grid_dashboard_cameras gauge
grid_dashboard_cameras 12
`), "grid_dashboard_cameras")
	require.NoError(t, err)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObservePoll(FeedWeather, time.Now(), nil)
	m.ObserveRun(incident.Result{})
	m.SetCameras(1)
	m.SetIgnored(1)
}
