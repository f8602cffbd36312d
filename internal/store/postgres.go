package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-grouper/internal/db"
	"github.com/sells-group/venue-grouper/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"get_cached_venues":    `SELECT venues FROM venue_cache WHERE key = $1 AND expires_at > now()`,
	"set_cached_venues":    `INSERT INTO venue_cache (key, venues, cached_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO UPDATE SET venues = EXCLUDED.venues, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
	"insert_cluster":       `INSERT INTO clusters (id, session_id, payload) VALUES ($1, $2, $3)`,
	"delete_expired_cache": `DELETE FROM venue_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contact_locations (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	contact_id   TEXT NOT NULL,
	lat          DOUBLE PRECISION NOT NULL,
	lng          DOUBLE PRECISION NOT NULL,
	organization TEXT,
	city         TEXT,
	captured_at  TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clusters (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS venue_cache (
	key        TEXT PRIMARY KEY,
	venues     JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_reports (
	session_id TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contact_locations_contact_id ON contact_locations(contact_id);
CREATE INDEX IF NOT EXISTS idx_clusters_session_id ON clusters(session_id);
CREATE INDEX IF NOT EXISTS idx_venue_cache_expires_at ON venue_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AddContactLocations(ctx context.Context, contacts []model.ContactLocation) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(contacts))
	for _, c := range contacts {
		var capturedAt any
		if c.CapturedAt != nil {
			capturedAt = c.CapturedAt.UTC()
		}
		rows = append(rows, []any{
			uuid.NewString(), c.ContactID, c.Coordinate.Lat, c.Coordinate.Lng,
			c.Organization, c.City, capturedAt,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "contact_locations",
		[]string{"id", "contact_id", "lat", "lng", "organization", "city", "captured_at"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: add contacts")
	}
	return int(n), nil
}

func (s *PostgresStore) ListContactLocations(ctx context.Context) ([]model.ContactLocation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT contact_id, lat, lng, COALESCE(organization, ''), COALESCE(city, ''), captured_at
		FROM contact_locations ORDER BY created_at, contact_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.ContactLocation
	for rows.Next() {
		var (
			c          model.ContactLocation
			capturedAt *time.Time
		)
		if err := rows.Scan(&c.ContactID, &c.Coordinate.Lat, &c.Coordinate.Lng, &c.Organization, &c.City, &capturedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		c.CapturedAt = capturedAt
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: iterate contacts")
}

func (s *PostgresStore) SaveClusters(ctx context.Context, sessionID string, clusters []model.Cluster) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save clusters")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, cl := range clusters {
		payload, err := json.Marshal(cl)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal cluster %s", cl.ID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO clusters (id, session_id, payload) VALUES ($1, $2, $3)`,
			cl.ID, sessionID, payload,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert cluster %s", cl.ID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save clusters")
}

func (s *PostgresStore) ListClusters(ctx context.Context, sessionID string) ([]model.Cluster, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM clusters WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clusters")
	}
	defer rows.Close()

	var clusters []model.Cluster
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cluster")
		}
		var cl model.Cluster
		if err := json.Unmarshal(payload, &cl); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal cluster")
		}
		clusters = append(clusters, cl)
	}
	return clusters, eris.Wrap(rows.Err(), "postgres: iterate clusters")
}

func (s *PostgresStore) GetCachedVenues(ctx context.Context, key string) ([]model.VenueCandidate, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT venues FROM venue_cache WHERE key = $1 AND expires_at > now()`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get cached venues")
	}

	var venues []model.VenueCandidate
	if err := json.Unmarshal(payload, &venues); err != nil {
		// Corrupt cache rows are treated as misses, never fatal.
		return nil, false, nil
	}
	return venues, true, nil
}

func (s *PostgresStore) SetCachedVenues(ctx context.Context, key string, venues []model.VenueCandidate, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultVenueCacheTTL
	}
	payload, err := json.Marshal(venues)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal venues")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO venue_cache (key, venues, cached_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET venues = EXCLUDED.venues,
			cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, payload, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached venues")
}

func (s *PostgresStore) DeleteExpiredVenueCache(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM venue_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired venue cache")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, report model.SessionReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_reports (session_id, payload) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET payload = EXCLUDED.payload`,
		report.SessionID, payload)
	return eris.Wrap(err, "postgres: save report")
}
