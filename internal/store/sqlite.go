package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/venue-grouper/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contact_locations (
	id           TEXT PRIMARY KEY,
	contact_id   TEXT NOT NULL,
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	organization TEXT,
	city         TEXT,
	captured_at  DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clusters (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS venue_cache (
	key        TEXT PRIMARY KEY,
	venues     TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS session_reports (
	session_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contact_locations_contact_id ON contact_locations(contact_id);
CREATE INDEX IF NOT EXISTS idx_clusters_session_id ON clusters(session_id);
CREATE INDEX IF NOT EXISTS idx_venue_cache_expires_at ON venue_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddContactLocations(ctx context.Context, contacts []model.ContactLocation) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin add contacts")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contact_locations (id, contact_id, lat, lng, organization, city, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare add contacts")
	}
	defer stmt.Close() //nolint:errcheck

	var added int
	for _, c := range contacts {
		var capturedAt any
		if c.CapturedAt != nil {
			capturedAt = c.CapturedAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), c.ContactID, c.Coordinate.Lat, c.Coordinate.Lng,
			nullable(c.Organization), nullable(c.City), capturedAt,
		); err != nil {
			return added, eris.Wrapf(err, "sqlite: insert contact %s", c.ContactID)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit add contacts")
	}
	return added, nil
}

func (s *SQLiteStore) ListContactLocations(ctx context.Context) ([]model.ContactLocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contact_id, lat, lng, organization, city, captured_at
		FROM contact_locations ORDER BY created_at, contact_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close() //nolint:errcheck

	var contacts []model.ContactLocation
	for rows.Next() {
		var (
			c          model.ContactLocation
			org, city  sql.NullString
			capturedAt sql.NullTime
		)
		if err := rows.Scan(&c.ContactID, &c.Coordinate.Lat, &c.Coordinate.Lng, &org, &city, &capturedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		c.Organization = org.String
		c.City = city.String
		if capturedAt.Valid {
			t := capturedAt.Time
			c.CapturedAt = &t
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: iterate contacts")
}

func (s *SQLiteStore) SaveClusters(ctx context.Context, sessionID string, clusters []model.Cluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save clusters")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, cl := range clusters {
		payload, err := json.Marshal(cl)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal cluster %s", cl.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clusters (id, session_id, payload) VALUES (?, ?, ?)`,
			cl.ID, sessionID, string(payload),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert cluster %s", cl.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save clusters")
}

func (s *SQLiteStore) ListClusters(ctx context.Context, sessionID string) ([]model.Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM clusters WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clusters")
	}
	defer rows.Close() //nolint:errcheck

	var clusters []model.Cluster
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster")
		}
		var cl model.Cluster
		if err := json.Unmarshal([]byte(payload), &cl); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal cluster")
		}
		clusters = append(clusters, cl)
	}
	return clusters, eris.Wrap(rows.Err(), "sqlite: iterate clusters")
}

func (s *SQLiteStore) GetCachedVenues(ctx context.Context, key string) ([]model.VenueCandidate, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT venues FROM venue_cache WHERE key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&payload)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get cached venues")
	}

	var venues []model.VenueCandidate
	if err := json.Unmarshal([]byte(payload), &venues); err != nil {
		// Corrupt cache rows are treated as misses, never fatal.
		return nil, false, nil
	}
	return venues, true, nil
}

func (s *SQLiteStore) SetCachedVenues(ctx context.Context, key string, venues []model.VenueCandidate, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultVenueCacheTTL
	}
	payload, err := json.Marshal(venues)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal venues")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO venue_cache (key, venues, cached_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET venues = excluded.venues,
			cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(payload), time.Now().UTC(), time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached venues")
}

func (s *SQLiteStore) DeleteExpiredVenueCache(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM venue_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired venue cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: expired venue cache rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report model.SessionReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_reports (session_id, payload) VALUES (?, ?)`,
		report.SessionID, string(payload))
	return eris.Wrap(err, "sqlite: save report")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
