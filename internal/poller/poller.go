// Package poller keeps the dashboard state current: it polls the weather,
// incident and camera feeds on independent timers and runs the incident
// pipeline on every incident tick.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zachdehooge/grid-dashboard/internal/config"
	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/generator"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/Zachdehooge/grid-dashboard/internal/metrics"
	"github.com/Zachdehooge/grid-dashboard/internal/store"
)

// HistoryStore keeps the recent incident counts.
type HistoryStore interface {
	AppendHistory(ctx context.Context, sample store.HistorySample) error
	History(ctx context.Context) ([]store.HistorySample, error)
}

// Options wires a Poller. Client and Session are required; the rest may be
// left nil.
type Options struct {
	Config  config.Config
	Client  *fetcher.Client
	Session *incident.Session
	History HistoryStore
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// OnUpdate receives a fresh snapshot after every refresh.
	OnUpdate func(ctx context.Context, d generator.Dashboard)
}

// Poller owns the last-known-good state of every feed.
type Poller struct {
	cfg      config.Config
	client   *fetcher.Client
	session  *incident.Session
	store    HistoryStore
	metrics  *metrics.Metrics
	log      *zap.Logger
	loc      *time.Location
	onUpdate func(ctx context.Context, d generator.Dashboard)
	now      func() time.Time

	mu          sync.Mutex
	weather     fetcher.Conditions
	result      incident.Result
	incidentErr string
	cameras     int
	history     []store.HistorySample
	updatedAt   time.Time

	// publishMu keeps OnUpdate calls from overlapping.
	publishMu sync.Mutex
}

// New builds a poller. Nothing is fetched until Refresh or Run.
func New(opts Options) *Poller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		cfg:      opts.Config,
		client:   opts.Client,
		session:  opts.Session,
		store:    opts.History,
		metrics:  opts.Metrics,
		log:      log.Named("poller"),
		loc:      opts.Config.Location(),
		onUpdate: opts.OnUpdate,
		now:      time.Now,
		weather:  fetcher.ErrorConditions(nil),
		result:   incident.Result{Incidents: []incident.Record{}},
	}
}

// Session returns the pipeline session the poller runs against.
func (p *Poller) Session() *incident.Session {
	return p.session
}

// Run refreshes every feed once, then keeps each on its own ticker until
// ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	loops := []struct {
		name     string
		interval time.Duration
		refresh  func(context.Context) error
	}{
		{metrics.FeedWeather, p.cfg.WeatherInterval, p.RefreshWeather},
		{metrics.FeedIncidents, p.cfg.IncidentInterval, p.RefreshIncidents},
		{metrics.FeedCameras, p.cfg.CameraInterval, p.RefreshCameras},
	}

	var wg sync.WaitGroup
	for _, l := range loops {
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx, l.name, l.interval, l.refresh)
		}()
	}
	wg.Wait()
}

func (p *Poller) loop(ctx context.Context, name string, interval time.Duration, refresh func(context.Context) error) {
	if interval < config.MinInterval {
		interval = config.MinInterval
	}
	p.log.Info("polling", zap.String("feed", name), zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are already logged and published; the next tick retries.
			_ = refresh(ctx)
		}
	}
}

// Refresh polls every feed once. Cameras go first so the incident run can
// use them. The returned error joins every feed failure.
func (p *Poller) Refresh(ctx context.Context) error {
	camErr := p.RefreshCameras(ctx)
	var wg sync.WaitGroup
	var incErr, wxErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		incErr = p.RefreshIncidents(ctx)
	}()
	go func() {
		defer wg.Done()
		wxErr = p.RefreshWeather(ctx)
	}()
	wg.Wait()
	return errors.Join(camErr, incErr, wxErr)
}

// RefreshWeather fetches the latest observation. On failure the weather
// panel switches to placeholders.
func (p *Poller) RefreshWeather(ctx context.Context) error {
	start := time.Now()
	obs, err := p.client.FetchObservation(ctx, p.cfg.WeatherAPIBase, p.cfg.Station)
	p.metrics.ObservePoll(metrics.FeedWeather, start, err)

	var cond fetcher.Conditions
	if err != nil {
		p.log.Warn("weather fetch failed", zap.String("station", p.cfg.Station), zap.Error(err))
		cond = fetcher.ErrorConditions(err)
	} else {
		cond = obs.Display(p.now(), p.loc, p.cfg.RadarSite)
		p.log.Debug("weather updated", zap.String("station", p.cfg.Station), zap.String("conditions", cond.Conditions))
	}

	p.mu.Lock()
	p.weather = cond
	p.updatedAt = p.now()
	p.mu.Unlock()
	p.publish(ctx)
	return err
}

// RefreshCameras replaces the camera set. On failure the previous set is
// kept.
func (p *Poller) RefreshCameras(ctx context.Context) error {
	start := time.Now()
	pois, err := p.client.FetchCameras(ctx, p.cfg.CamerasURL)
	p.metrics.ObservePoll(metrics.FeedCameras, start, err)
	if err != nil {
		p.log.Warn("camera fetch failed, keeping previous set",
			zap.Int("cameras", len(p.session.POIs())), zap.Error(err))
		return err
	}

	p.session.SetPOIs(pois)
	p.metrics.SetCameras(len(pois))
	p.log.Debug("cameras updated", zap.Int("cameras", len(pois)))

	p.mu.Lock()
	p.cameras = len(pois)
	p.mu.Unlock()
	return nil
}

// RefreshIncidents fetches the incident feed and runs the pipeline. On a
// network failure the last good list stays published next to the error. An
// unrecognized payload runs as an empty feed.
func (p *Poller) RefreshIncidents(ctx context.Context) error {
	start := time.Now()
	records, err := p.client.FetchIncidents(ctx, p.cfg.EventsURL)
	p.metrics.ObservePoll(metrics.FeedIncidents, start, err)

	if err != nil && !errors.Is(err, incident.ErrShapeMismatch) {
		p.log.Warn("incident fetch failed, keeping last good list", zap.Error(err))
		p.mu.Lock()
		p.incidentErr = err.Error()
		p.updatedAt = p.now()
		p.mu.Unlock()
		p.publish(ctx)
		return err
	}
	if err != nil {
		p.log.Warn("unrecognized incident payload", zap.Error(err))
	}

	res := p.session.Run(ctx, records)
	p.metrics.ObserveRun(res)
	p.metrics.SetIgnored(p.session.Ignored().Len())
	p.log.Debug("incidents updated",
		zap.Int("ingested", len(records)), zap.Int("total", res.Total), zap.Bool("new", res.New))

	history := p.recordHistory(ctx, res.Total)

	p.mu.Lock()
	p.result = res
	p.incidentErr = ""
	p.history = history
	p.updatedAt = p.now()
	p.mu.Unlock()
	p.publish(ctx)
	return err
}

// recordHistory appends a count sample and returns the retained history.
// Without a store the history is kept in memory only.
func (p *Poller) recordHistory(ctx context.Context, total int) []store.HistorySample {
	sample := store.HistorySample{Timestamp: p.now(), Count: total}
	if p.store != nil {
		if err := p.store.AppendHistory(ctx, sample); err != nil {
			p.log.Warn("failed to record history", zap.Error(err))
		} else if samples, err := p.store.History(ctx); err != nil {
			p.log.Warn("failed to load history", zap.Error(err))
		} else {
			return samples
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	history := append(append([]store.HistorySample{}, p.history...), sample)
	if n := len(history); n > store.HistoryLimit {
		history = history[n-store.HistoryLimit:]
	}
	return history
}

// Snapshot returns the current dashboard state.
func (p *Poller) Snapshot() generator.Dashboard {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := generator.Dashboard{
		Weather:             p.weather,
		Incidents:           p.result.Incidents,
		Total:               p.result.Total,
		IncidentError:       p.incidentErr,
		Cameras:             p.cameras,
		Ignored:             p.session.Ignored().IDs(),
		History:             append([]store.HistorySample{}, p.history...),
		SuppressMaintenance: p.session.SuppressMaintenance(),
		AlertsEnabled:       p.session.AlertsEnabled(),
		MapURL:              p.cfg.MapURL,
		Home:                p.cfg.Home,
		RefreshSeconds:      int(p.cfg.IncidentInterval / time.Second),
		TimeZone:            p.cfg.TimeZone,
	}
	updated := p.updatedAt
	if updated.IsZero() {
		updated = p.now()
	}
	d.Stamp(updated, p.loc)
	return d
}

func (p *Poller) publish(ctx context.Context) {
	if p.onUpdate == nil {
		return
	}
	p.publishMu.Lock()
	defer p.publishMu.Unlock()
	p.onUpdate(ctx, p.Snapshot())
}

// Ignore hides id from every future run and refreshes incidents.
func (p *Poller) Ignore(ctx context.Context, id string) error {
	if err := p.session.Ignore(ctx, id); err != nil {
		return err
	}
	p.log.Info("incident ignored", zap.String("id", id))
	p.metrics.SetIgnored(p.session.Ignored().Len())
	p.refreshAfterAction(ctx)
	return nil
}

// ClearIgnored empties the ignore list and refreshes incidents.
func (p *Poller) ClearIgnored(ctx context.Context) error {
	if err := p.session.ClearIgnored(ctx); err != nil {
		return err
	}
	p.log.Info("ignore list cleared")
	p.metrics.SetIgnored(0)
	p.refreshAfterAction(ctx)
	return nil
}

// SetSuppressMaintenance toggles the construction/maintenance filter and
// refreshes incidents.
func (p *Poller) SetSuppressMaintenance(ctx context.Context, v bool) {
	p.session.SetSuppressMaintenance(v)
	p.log.Info("maintenance filter changed", zap.Bool("suppress", v))
	p.refreshAfterAction(ctx)
}

// SetAlertsEnabled toggles new-incident alerts and refreshes incidents.
func (p *Poller) SetAlertsEnabled(ctx context.Context, v bool) {
	p.session.SetAlertsEnabled(v)
	p.log.Info("alerts changed", zap.Bool("enabled", v))
	p.refreshAfterAction(ctx)
}

// refreshAfterAction re-polls incidents right away. A failed poll is
// already published and does not fail the action.
func (p *Poller) refreshAfterAction(ctx context.Context) {
	_ = p.RefreshIncidents(ctx)
}
