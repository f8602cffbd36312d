package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-grouper/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCachedVenues_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT venues FROM venue_cache`).
		WithArgs("37.78,-122.40|r500").
		WillReturnError(pgx.ErrNoRows)

	_, found, err := s.GetCachedVenues(context.Background(), "37.78,-122.40|r500")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedVenues_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	venues := []model.VenueCandidate{{ID: "pl-1", Name: "Moscone Center"}}
	payload, err := json.Marshal(venues)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT venues FROM venue_cache`).
		WithArgs("k1").
		WillReturnRows(pgxmock.NewRows([]string{"venues"}).AddRow(payload))

	got, found, err := s.GetCachedVenues(context.Background(), "k1")
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "Moscone Center", got[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedVenues_CorruptPayloadIsMiss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT venues FROM venue_cache`).
		WithArgs("k1").
		WillReturnRows(pgxmock.NewRows([]string{"venues"}).AddRow([]byte("{not json")))

	_, found, err := s.GetCachedVenues(context.Background(), "k1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedVenues_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("k1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedVenues(context.Background(), "k1", nil, time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredVenueCache(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM venue_cache`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredVenueCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveClusters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	clusters := []model.Cluster{
		{ID: "cl-1", Confidence: 0.8, Tier: model.TierHigh, Source: model.SourceVenue},
		{ID: "cl-2", Confidence: 0.5, Tier: model.TierMedium, Source: model.SourceOrganization},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO clusters`).
		WithArgs("cl-1", "sess-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO clusters`).
		WithArgs("cl-2", "sess-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveClusters(context.Background(), "sess-1", clusters)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListClusters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(model.Cluster{ID: "cl-1", Tier: model.TierHigh})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM clusters WHERE session_id`).
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.ListClusters(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cl-1", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO session_reports`).
		WithArgs("sess-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveReport(context.Background(), model.SessionReport{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddContactLocations_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	n, err := s.AddContactLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresStore_AddContactLocations_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"contact_locations"},
		[]string{"id", "contact_id", "lat", "lng", "organization", "city", "captured_at"}).
		WillReturnResult(2)

	n, err := s.AddContactLocations(context.Background(), []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 1, Lng: 2}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 3, Lng: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
