package incident

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrEmptyID is returned when ignoring a record that has no id.
var ErrEmptyID = errors.New("incident id is empty")

// IgnoreStore persists the ignored ids across sessions.
type IgnoreStore interface {
	IgnoredIDs(ctx context.Context) ([]string, error)
	AddIgnored(ctx context.Context, id string) error
	ClearIgnored(ctx context.Context) error
}

// Alerter is told when a run surfaces a new incident.
type Alerter interface {
	NewIncident(ctx context.Context, res Result)
}

// IgnoreSet is an immutable, insertion-ordered set of ignored ids.
type IgnoreSet struct {
	ids []string
	set map[string]struct{}
}

// NewIgnoreSet builds a set from ids, dropping empties and duplicates.
func NewIgnoreSet(ids []string) *IgnoreSet {
	s := &IgnoreSet{set: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := s.set[id]; dup {
			continue
		}
		s.set[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

// Contains reports whether id is ignored.
func (s *IgnoreSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[id]
	return ok
}

// IDs returns the ids in the order they were ignored.
func (s *IgnoreSet) IDs() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *IgnoreSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

func (s *IgnoreSet) with(id string) *IgnoreSet {
	return NewIgnoreSet(append(s.IDs(), id))
}

// Session is the state shared by pipeline runs: ignored ids, the current
// camera set, the previous run's ids and the user's toggles.
//
// Runs read one snapshot of the ignore set and camera set each; both are
// replaced wholesale, never edited in place.
type Session struct {
	store   IgnoreStore
	alerter Alerter

	// mu serializes ignore-set writers.
	mu      sync.Mutex
	ignored atomic.Pointer[IgnoreSet]
	pois    atomic.Pointer[[]POI]

	detector            ChangeDetector
	suppressMaintenance atomic.Bool
	alertsEnabled       atomic.Bool
}

// NewSession creates a session. store and alerter may be nil. Maintenance
// suppression starts enabled and alerts start disabled.
func NewSession(store IgnoreStore, alerter Alerter) *Session {
	s := &Session{store: store, alerter: alerter}
	s.ignored.Store(NewIgnoreSet(nil))
	empty := []POI{}
	s.pois.Store(&empty)
	s.suppressMaintenance.Store(true)
	return s
}

// Load replaces the in-memory ignore set with the persisted one.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	ids, err := s.store.IgnoredIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ignored ids: %w", err)
	}
	s.mu.Lock()
	s.ignored.Store(NewIgnoreSet(ids))
	s.mu.Unlock()
	return nil
}

// Ignore suppresses id from all future runs until ClearIgnored.
func (s *Session) Ignore(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.ignored.Load()
	if current.Contains(id) {
		return nil
	}
	if s.store != nil {
		if err := s.store.AddIgnored(ctx, id); err != nil {
			return fmt.Errorf("failed to persist ignored id %q: %w", id, err)
		}
	}
	s.ignored.Store(current.with(id))
	return nil
}

// ClearIgnored empties the ignore set.
func (s *Session) ClearIgnored(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.ClearIgnored(ctx); err != nil {
			return fmt.Errorf("failed to clear ignored ids: %w", err)
		}
	}
	s.ignored.Store(NewIgnoreSet(nil))
	return nil
}

// Ignored returns the current ignore-set snapshot.
func (s *Session) Ignored() *IgnoreSet {
	return s.ignored.Load()
}

// SetPOIs replaces the camera set.
func (s *Session) SetPOIs(pois []POI) {
	cp := make([]POI, len(pois))
	copy(cp, pois)
	s.pois.Store(&cp)
}

// POIs returns the current camera set. Callers must not modify it.
func (s *Session) POIs() []POI {
	return *s.pois.Load()
}

func (s *Session) SetSuppressMaintenance(v bool) { s.suppressMaintenance.Store(v) }
func (s *Session) SuppressMaintenance() bool     { return s.suppressMaintenance.Load() }
func (s *Session) SetAlertsEnabled(v bool)       { s.alertsEnabled.Store(v) }
func (s *Session) AlertsEnabled() bool           { return s.alertsEnabled.Load() }

// Run filters and enriches one batch of ingested records, then checks it
// for new ids. The alerter is only called while alerts are enabled; the
// previous-id set advances either way.
func (s *Session) Run(ctx context.Context, records []Record) Result {
	ignored := s.ignored.Load()
	pois := *s.pois.Load()

	filtered := Filter(records, ignored, s.suppressMaintenance.Load())
	enriched := Enrich(filtered, pois)

	res := Result{
		Incidents: enriched,
		Total:     len(enriched),
	}
	res.New = s.detector.Observe(IDs(enriched))
	if res.New && s.alertsEnabled.Load() && s.alerter != nil {
		s.alerter.NewIncident(ctx, res)
	}
	return res
}
