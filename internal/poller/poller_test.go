package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/grid-dashboard/internal/config"
	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/generator"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/Zachdehooge/grid-dashboard/internal/store"
)

const observationJSON = `{"properties":{
	"temperature":{"value":30},"dewpoint":{"value":18},"windSpeed":{"value":30},
	"windGust":{"value":null},"windDirection":{"value":270},"relativeHumidity":{"value":50},
	"visibility":{"value":16093.4},"barometricPressure":{"value":101325},
	"textDescription":"Mostly Sunny"}}`

const camerasJSON = `[
	{"id":"cam-a","name":"I-49 @ Exit 85","latitude":36.06,"longitude":-94.16},
	{"id":"cam-b","name":"US-412 @ Springdale","latitude":36.19,"longitude":-94.13}
]`

// upstream serves the three feeds; the incident body and the status codes
// can be swapped mid-test.
type upstream struct {
	srv *httptest.Server

	mu            sync.Mutex
	events        string
	eventsStatus  int
	camerasStatus int
	weatherStatus int
	eventHits     atomic.Int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		events:        `[]`,
		eventsStatus:  http.StatusOK,
		camerasStatus: http.StatusOK,
		weatherStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		u.eventHits.Add(1)
		u.mu.Lock()
		status, body := u.eventsStatus, u.events
		u.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/cameras", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		status := u.camerasStatus
		u.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(camerasJSON))
	})
	mux.HandleFunc("/stations/KASG/observations/latest", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		status := u.weatherStatus
		u.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(observationJSON))
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) set(fn func(u *upstream)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(u)
}

func (u *upstream) config() config.Config {
	cfg := config.Default()
	cfg.WeatherAPIBase = u.srv.URL
	cfg.EventsURL = u.srv.URL + "/events"
	cfg.CamerasURL = u.srv.URL + "/cameras"
	cfg.TimeZone = "UTC"
	return cfg
}

type countingAlerter struct {
	calls atomic.Int32
}

func (a *countingAlerter) NewIncident(context.Context, incident.Result) {
	a.calls.Add(1)
}

func newTestPoller(t *testing.T, u *upstream, hist HistoryStore, alerter incident.Alerter) *Poller {
	t.Helper()
	return New(Options{
		Config:  u.config(),
		Client:  fetcher.NewClient(5 * time.Second),
		Session: incident.NewSession(nil, alerter),
		History: hist,
	})
}

func TestRefresh_BuildsDashboard(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) {
		u.events = `{"events":[
			{"id":1,"type":"Crash","description":"Crash on I-49","latitude":36.061,"longitude":-94.161},
			{"id":2,"type":"Construction","description":"Lane closure for bridge work"},
			{"id":3,"type":"Flooding","description":"Water over road"}
		]}`
	})

	var updates atomic.Int32
	p := New(Options{
		Config:   u.config(),
		Client:   fetcher.NewClient(5 * time.Second),
		Session:  incident.NewSession(nil, nil),
		OnUpdate: func(context.Context, generator.Dashboard) { updates.Add(1) },
	})
	require.NoError(t, p.Refresh(context.Background()))

	d := p.Snapshot()
	assert.Equal(t, "86", d.Weather.Temperature)
	assert.Equal(t, "Mostly Sunny", d.Weather.Conditions)
	assert.Equal(t, 2, d.Cameras)
	assert.Equal(t, 2, d.Total, "maintenance-like records are suppressed by default")
	require.Len(t, d.Incidents, 2)
	assert.Equal(t, "1", d.Incidents[0].ID)
	require.NotNil(t, d.Incidents[0].NearestPOI)
	assert.Equal(t, "cam-a", d.Incidents[0].NearestPOI.POI.ID)
	assert.Nil(t, d.Incidents[1].NearestPOI)
	assert.Equal(t, incident.ClassWeather, d.Incidents[1].Class)
	assert.Empty(t, d.IncidentError)
	assert.Len(t, d.History, 1)
	assert.Equal(t, 30, d.RefreshSeconds)
	assert.Equal(t, "UTC", d.TimeZone)
	assert.True(t, d.SuppressMaintenance)
	assert.GreaterOrEqual(t, updates.Load(), int32(2))
}

func TestRefreshIncidents_KeepsLastGoodListOnFailure(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Crash"}]` })
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.RefreshIncidents(ctx))
	u.set(func(u *upstream) { u.eventsStatus = http.StatusBadGateway })

	err := p.RefreshIncidents(ctx)
	require.ErrorIs(t, err, fetcher.ErrNetwork)

	d := p.Snapshot()
	assert.Equal(t, 1, d.Total)
	assert.Equal(t, "a", d.Incidents[0].ID)
	assert.Contains(t, d.IncidentError, "API error: 502")

	u.set(func(u *upstream) { u.eventsStatus = http.StatusOK })
	require.NoError(t, p.RefreshIncidents(ctx))
	assert.Empty(t, p.Snapshot().IncidentError)
}

func TestRefreshIncidents_UnknownShapeRunsEmpty(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Crash"}]` })
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()
	require.NoError(t, p.RefreshIncidents(ctx))

	u.set(func(u *upstream) { u.events = `{"unexpected":true}` })
	err := p.RefreshIncidents(ctx)
	require.ErrorIs(t, err, incident.ErrShapeMismatch)

	d := p.Snapshot()
	assert.Zero(t, d.Total)
	assert.Empty(t, d.Incidents)
	assert.Empty(t, d.IncidentError)
}

func TestRefreshCameras_KeepsPreviousSetOnFailure(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.RefreshCameras(ctx))
	require.Len(t, p.Session().POIs(), 2)

	u.set(func(u *upstream) { u.camerasStatus = http.StatusInternalServerError })
	require.ErrorIs(t, p.RefreshCameras(ctx), fetcher.ErrNetwork)
	assert.Len(t, p.Session().POIs(), 2)
	assert.Equal(t, 2, p.Snapshot().Cameras)
}

func TestRefreshWeather_FailureShowsPlaceholders(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.RefreshWeather(ctx))
	assert.Equal(t, "86", p.Snapshot().Weather.Temperature)

	u.set(func(u *upstream) { u.weatherStatus = http.StatusServiceUnavailable })
	require.Error(t, p.RefreshWeather(ctx))
	w := p.Snapshot().Weather
	assert.Equal(t, "Error", w.Conditions)
	assert.Equal(t, fetcher.Placeholder, w.Temperature)
}

func TestIgnore_RefreshesImmediately(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Crash"},{"id":"b","type":"Crash"}]` })
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.RefreshIncidents(ctx))
	hits := u.eventHits.Load()

	require.NoError(t, p.Ignore(ctx, "a"))
	assert.Equal(t, hits+1, u.eventHits.Load())
	d := p.Snapshot()
	assert.Equal(t, 1, d.Total)
	assert.Equal(t, "b", d.Incidents[0].ID)
	assert.Equal(t, []string{"a"}, d.Ignored)

	require.ErrorIs(t, p.Ignore(ctx, ""), incident.ErrEmptyID)

	require.NoError(t, p.ClearIgnored(ctx))
	d = p.Snapshot()
	assert.Equal(t, 2, d.Total)
	assert.Empty(t, d.Ignored)
}

func TestSetSuppressMaintenance(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Construction"},{"id":"b","type":"Crash"}]` })
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.RefreshIncidents(ctx))
	assert.Equal(t, 1, p.Snapshot().Total)

	p.SetSuppressMaintenance(ctx, false)
	d := p.Snapshot()
	assert.Equal(t, 2, d.Total)
	assert.False(t, d.SuppressMaintenance)
}

func TestAlerts_OnlyWhenEnabled(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Crash"}]` })
	alerter := &countingAlerter{}
	p := newTestPoller(t, u, nil, alerter)
	ctx := context.Background()

	require.NoError(t, p.RefreshIncidents(ctx))
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Crash"},{"id":"b","type":"Crash"}]` })
	require.NoError(t, p.RefreshIncidents(ctx))
	assert.Zero(t, alerter.calls.Load(), "alerts start disabled")

	p.SetAlertsEnabled(ctx, true)
	u.set(func(u *upstream) {
		u.events = `[{"id":"a","type":"Crash"},{"id":"b","type":"Crash"},{"id":"c","type":"Crash"}]`
	})
	require.NoError(t, p.RefreshIncidents(ctx))
	assert.Equal(t, int32(1), alerter.calls.Load())
}

func TestHistory_PersistsThroughStore(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	u.set(func(u *upstream) { u.events = `[{"id":"a","type":"Crash"}]` })
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "grid.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p := newTestPoller(t, u, st, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.RefreshIncidents(ctx))
	}

	samples, err := st.History(ctx)
	require.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.Len(t, p.Snapshot().History, 3)
}

func TestHistory_InMemoryIsBounded(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	p := newTestPoller(t, u, nil, nil)
	ctx := context.Background()
	for i := 0; i < store.HistoryLimit+3; i++ {
		require.NoError(t, p.RefreshIncidents(ctx))
	}
	assert.Len(t, p.Snapshot().History, store.HistoryLimit)
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()
	u := newUpstream(t)
	p := newTestPoller(t, u, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return u.eventHits.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
