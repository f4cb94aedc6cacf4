// Package store persists the dashboard's user state: the ignored incident
// ids and a short history of incident counts.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// HistoryLimit is the number of count samples retained.
const HistoryLimit = 20

//go:embed migrations/*.sql
var migrationsFS embed.FS

// HistorySample is one incident-count observation.
type HistorySample struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// Store is a SQL-backed store. sqlite is used for file paths, postgres for
// postgres:// URLs.
type Store struct {
	db     *sqlx.DB
	driver string
	log    *zap.Logger
	now    func() time.Time

	// historyMu serializes AppendHistory; seq is derived from MAX(seq).
	historyMu sync.Mutex
}

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "postgres"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer; avoids SQLITE_BUSY between the poller and user actions.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s store: %w", driver, err)
	}

	s := &Store{db: db, driver: driver, log: log.Named("store"), now: time.Now}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("store ready", zap.String("driver", driver))
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case "postgres":
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", s.driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: s.log}
	// m is not closed: that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger adapts migrate.Logger onto zap.
type migrateLogger struct {
	log *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf("[migrate] "+format, v...)))
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// IgnoredIDs returns the ignored ids in the order they were added.
func (s *Store) IgnoredIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, `SELECT incident_id FROM ignored_incidents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored ids: %w", err)
	}
	return ids, nil
}

// AddIgnored appends id to the ignore list. Existing ids keep their place.
func (s *Store) AddIgnored(ctx context.Context, id string) error {
	// WHERE true lets sqlite parse ON CONFLICT after INSERT ... SELECT.
	query := s.db.Rebind(`
		INSERT INTO ignored_incidents (incident_id, position, ignored_at)
		SELECT CAST(? AS TEXT), COALESCE(MAX(position), 0) + 1, CAST(? AS BIGINT) FROM ignored_incidents WHERE true
		ON CONFLICT (incident_id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, query, id, s.now().UnixNano()); err != nil {
		return fmt.Errorf("failed to insert ignored id: %w", err)
	}
	return nil
}

// ClearIgnored removes every ignored id.
func (s *Store) ClearIgnored(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ignored_incidents`); err != nil {
		return fmt.Errorf("failed to clear ignored ids: %w", err)
	}
	return nil
}

type historyRow struct {
	RecordedAt int64 `db:"recorded_at"`
	Count      int   `db:"incident_count"`
}

// AppendHistory records a sample and drops all but the newest HistoryLimit.
func (s *Store) AppendHistory(ctx context.Context, sample HistorySample) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	if s.driver == "postgres" {
		// Other processes may share the database.
		if _, err := tx.ExecContext(ctx, `LOCK TABLE incident_history IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("failed to lock history: %w", err)
		}
	}

	var maxSeq sql.NullInt64
	if err := tx.GetContext(ctx, &maxSeq, `SELECT MAX(seq) FROM incident_history`); err != nil {
		return fmt.Errorf("failed to read history sequence: %w", err)
	}
	seq := maxSeq.Int64 + 1

	insert := tx.Rebind(`INSERT INTO incident_history (seq, recorded_at, incident_count) VALUES (?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, seq, sample.Timestamp.UnixMilli(), sample.Count); err != nil {
		return fmt.Errorf("failed to insert history sample: %w", err)
	}
	trim := tx.Rebind(`DELETE FROM incident_history WHERE seq <= ?`)
	if _, err := tx.ExecContext(ctx, trim, seq-HistoryLimit); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history sample: %w", err)
	}
	return nil
}

// History returns the retained samples, oldest first.
func (s *Store) History(ctx context.Context) ([]HistorySample, error) {
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows, `SELECT recorded_at, incident_count FROM incident_history ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	samples := make([]HistorySample, 0, len(rows))
	for _, r := range rows {
		samples = append(samples, HistorySample{
			Timestamp: time.UnixMilli(r.RecordedAt),
			Count:     r.Count,
		})
	}
	return samples, nil
}
