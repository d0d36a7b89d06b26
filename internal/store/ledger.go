// Package store is the SQLite ledger of count and device-status events.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"vehicle-counter-go/internal/models"
)

// DayLayout is the format of the day column and history queries.
const DayLayout = "2006-01-02"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ledger appends events and answers per-day aggregate queries.
type Ledger struct {
	db  *sql.DB
	loc *time.Location
}

// DailyTotal is the number of events of one counter on one day.
type DailyTotal struct {
	Camera  string `json:"camera"`
	Zone    string `json:"zone"`
	Counter string `json:"counter"`
	In      int    `json:"in"`
	Out     int    `json:"out"`
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	l := &Ledger{db: db, loc: time.Local}
	if err := l.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Count ledger ready")
	return l, nil
}

func (l *Ledger) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(l.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version is the applied schema version.
func (l *Ledger) Version(ctx context.Context) (int, error) {
	var v int
	err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&v)
	return v, err
}

// InsertCountEvent appends ev. Inserting the same event id twice is a no-op.
func (l *Ledger) InsertCountEvent(ctx context.Context, ev models.CountEvent) error {
	classWise := ev.ClassWise
	if classWise == nil {
		classWise = map[string]models.Tally{}
	}
	delta := ev.Delta
	if delta <= 0 {
		delta = 1
	}
	cw, err := json.Marshal(classWise)
	if err != nil {
		return fmt.Errorf("failed to encode class counts: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO count_events
			(id, camera, zone, counter, direction, delta, in_counts, out_counts, class_wise, occurred_at, day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Camera, ev.Zone, ev.Counter, string(ev.Direction), delta,
		ev.InCounts, ev.OutCounts, string(cw),
		ev.OccurredAt.UnixMilli(), ev.OccurredAt.In(l.loc).Format(DayLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert count event %s: %w", ev.ID, err)
	}
	return nil
}

// InsertDeviceEvent records a source status transition.
func (l *Ledger) InsertDeviceEvent(ctx context.Context, ev models.DeviceStatusEvent) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO device_events (camera, detail, occurred_at) VALUES (?, ?, ?)",
		ev.Camera, ev.Detail, ev.OccurredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert device event: %w", err)
	}
	return nil
}

// DailyTotals sums the crossings of every counter on day. An empty camera
// matches all cameras.
func (l *Ledger) DailyTotals(ctx context.Context, camera string, day time.Time) ([]DailyTotal, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT camera, zone, counter,
			SUM(CASE WHEN direction = 'in' THEN delta ELSE 0 END),
			SUM(CASE WHEN direction = 'out' THEN delta ELSE 0 END)
		FROM count_events
		WHERE day = ? AND (? = '' OR camera = ?)
		GROUP BY camera, zone, counter
		ORDER BY camera, counter`,
		day.In(l.loc).Format(DayLayout), camera, camera,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var out []DailyTotal
	for rows.Next() {
		var t DailyTotal
		if err := rows.Scan(&t.Camera, &t.Zone, &t.Counter, &t.In, &t.Out); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LastDeviceStatus returns the most recent status detail of camera.
func (l *Ledger) LastDeviceStatus(ctx context.Context, camera string) (string, time.Time, error) {
	var detail string
	var ms int64
	err := l.db.QueryRowContext(ctx,
		"SELECT detail, occurred_at FROM device_events WHERE camera = ? ORDER BY occurred_at DESC, rowid DESC LIMIT 1",
		camera,
	).Scan(&detail, &ms)
	if err != nil {
		return "", time.Time{}, err
	}
	return detail, time.UnixMilli(ms), nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
