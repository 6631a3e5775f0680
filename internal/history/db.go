package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS locations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT NOT NULL,
    ref         TEXT NOT NULL,
    app_name    TEXT NOT NULL DEFAULT '',
    session_id  TEXT NOT NULL DEFAULT '',
    event_count INTEGER NOT NULL DEFAULT 0,
    loaded_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS locations_loaded_at ON locations(loaded_at);
`

// Source kinds stored in the source column.
const (
	SourceLocal = "local"
	SourceDrive = "drive"
)

type DB struct {
	db  *sql.DB
	now func() time.Time
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db, now: time.Now}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Location is one successful load.
type Location struct {
	Source     string
	Ref        string
	AppName    string
	SessionID  string
	EventCount int
	LoadedAt   time.Time
}

// Record appends a successful load. Repeated loads of the same location
// are kept; Recent collapses them.
func (d *DB) Record(loc Location) error {
	if loc.LoadedAt.IsZero() {
		loc.LoadedAt = d.now()
	}
	_, err := d.db.Exec(
		"INSERT INTO locations (source, ref, app_name, session_id, event_count, loaded_at) VALUES (?, ?, ?, ?, ?, ?)",
		loc.Source, loc.Ref, loc.AppName, loc.SessionID, loc.EventCount, loc.LoadedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record location: %w", err)
	}
	return nil
}

// Recent returns distinct locations, newest first, each with its latest
// load.
func (d *DB) Recent(limit int) ([]Location, error) {
	rows, err := d.db.Query(`
		SELECT l.source, l.ref, l.app_name, l.session_id, l.event_count, l.loaded_at
		FROM locations l
		JOIN (
			SELECT source, ref, MAX(id) AS id FROM locations GROUP BY source, ref
		) latest ON latest.id = l.id
		ORDER BY l.loaded_at DESC, l.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		var ms int64
		if err := rows.Scan(&loc.Source, &loc.Ref, &loc.AppName, &loc.SessionID, &loc.EventCount, &ms); err != nil {
			return nil, err
		}
		loc.LoadedAt = time.UnixMilli(ms)
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Last returns the most recent location, or nil when none was recorded.
func (d *DB) Last() (*Location, error) {
	locs, err := d.Recent(1)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}
	return &locs[0], nil
}

func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM locations").Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
