package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-grouper/internal/cache"
	"github.com/sells-group/venue-grouper/internal/cost"
	"github.com/sells-group/venue-grouper/internal/model"
	"github.com/sells-group/venue-grouper/internal/resilience"
	"github.com/sells-group/venue-grouper/pkg/places"
)

func mosconePayload() []byte {
	b, _ := json.Marshal(map[string]any{
		"places": []map[string]any{{
			"id":          "pl-1",
			"displayName": map[string]any{"text": "Moscone Center"},
			"location":    map[string]any{"latitude": 37.7842, "longitude": -122.4016},
			"types":       []string{"convention_center", "event_venue"},
		}},
	})
	return b
}

func newTestClient(t *testing.T, url string) places.Client {
	t.Helper()
	client, err := places.NewClient("test-key",
		places.WithBaseURL(url),
		places.WithPacing(time.Microsecond, 0),
		places.WithRetryConfig(resilience.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			Multiplier:     2.0,
			OnRetry:        func(int, error) {},
		}),
	)
	require.NoError(t, err)
	return client
}

func newTestOrchestrator(t *testing.T, url string, cfg Config) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(Deps{Client: newTestClient(t, url)}, cfg)
	require.NoError(t, err)
	return o
}

// Three close contacts with no organization, an affordable budget, and a
// matching venue must produce one paid call and one high-tier cluster.
func TestRun_SingleVenueCluster(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(mosconePayload())
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, Config{
		BudgetLimitUSD:   0.10,
		MaxPaidLocations: 5,
		Tier:             cost.TierMinimal,
	})

	contacts := []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.7840, Lng: -122.4010}, City: "San Francisco"},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.7843, Lng: -122.4012}, City: "San Francisco"},
		{ContactID: "c-3", Coordinate: model.Coordinate{Lat: 37.7845, Lng: -122.4015}, City: "San Francisco"},
	}

	out, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, out.Clusters, 1)

	cl := out.Clusters[0]
	assert.Len(t, cl.Contacts, 3)
	require.NotNil(t, cl.Venue)
	assert.Equal(t, "Moscone Center", cl.Venue.Name)
	assert.Equal(t, model.TierHigh, cl.Tier)
	assert.Equal(t, model.SourceVenue, cl.Source)

	assert.Equal(t, 1, out.Report.ExternalCalls)
	assert.InDelta(t, 0.004, out.Report.EstimatedCostUSD, 1e-9)
	assert.Equal(t, "ok", out.Report.BudgetStatus)
	assert.NotEmpty(t, out.Report.SessionID)
}

// A zero budget means no paid calls at all; only free grouping runs.
func TestRun_ZeroBudgetMakesNoCalls(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(mosconePayload())
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, Config{BudgetLimitUSD: 0})

	contacts := []model.ContactLocation{
		// No-organization trio that would otherwise go through the paid path.
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.7840, Lng: -122.4010}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.7843, Lng: -122.4012}},
		{ContactID: "c-3", Coordinate: model.Coordinate{Lat: 37.7845, Lng: -122.4015}},
		// Same-organization pair recoverable by the free grouper.
		{ContactID: "c-4", Coordinate: model.Coordinate{Lat: 30.2672, Lng: -97.7431}, Organization: "Acme"},
		{ContactID: "c-5", Coordinate: model.Coordinate{Lat: 30.2674, Lng: -97.7433}, Organization: "Acme"},
	}

	out, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, out.Report.ExternalCalls)
	assert.Equal(t, "exceeded", out.Report.BudgetStatus)

	require.Len(t, out.Clusters, 1)
	assert.Equal(t, model.SourceOrganization, out.Clusters[0].Source)
	assert.Equal(t, "acme", out.Clusters[0].Organization)
}

// An identical query in a later session sharing the cache is served without
// a second external call or any additional spend.
func TestRun_CacheServesRepeatQuery(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(mosconePayload())
	}))
	defer srv.Close()

	shared := cache.New(0, 0)
	o, err := NewOrchestrator(Deps{Client: newTestClient(t, srv.URL), Cache: shared},
		Config{BudgetLimitUSD: 0.10})
	require.NoError(t, err)

	contacts := []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.7840, Lng: -122.4010}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.7843, Lng: -122.4012}},
	}

	first, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Report.ExternalCalls)
	assert.Equal(t, 1, first.Report.CacheMisses)

	second, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Report.ExternalCalls)
	assert.Equal(t, 1, second.Report.CacheHits)
	assert.Zero(t, second.Report.EstimatedCostUSD)

	assert.Equal(t, int32(1), calls.Load())
}

// Contacts on a known campus skip the external call entirely.
func TestRun_CampusShortCircuit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(mosconePayload())
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, Config{BudgetLimitUSD: 0.10})

	contacts := []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.4220, Lng: -122.0841}, Organization: "Google"},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.4222, Lng: -122.0843}, Organization: "Google"},
	}

	out, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
	require.Len(t, out.Clusters, 1)

	cl := out.Clusters[0]
	assert.Equal(t, "google", cl.Organization)
	assert.Equal(t, model.SourceOrganization, cl.Source)
	assert.Equal(t, model.TierHigh, cl.Tier)
	assert.Nil(t, cl.Venue)
	assert.Zero(t, out.Report.EstimatedCostUSD)
}

// Once the budget cannot afford the next call, remaining locations degrade
// to free grouping and clusters computed so far are kept.
func TestRun_BudgetExhaustionDegrades(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(mosconePayload())
	}))
	defer srv.Close()

	// Exactly one minimal-tier call fits.
	o := newTestOrchestrator(t, srv.URL, Config{BudgetLimitUSD: 0.004})

	contacts := []model.ContactLocation{
		// Priority 3: resolved via the paid path first.
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.7840, Lng: -122.4010}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.7843, Lng: -122.4012}},
		{ContactID: "c-3", Coordinate: model.Coordinate{Lat: 37.7845, Lng: -122.4015}},
		// Priority 2: budget is gone by the time this is reached.
		{ContactID: "c-4", Coordinate: model.Coordinate{Lat: 30.2672, Lng: -97.7431}, Organization: "Acme"},
		{ContactID: "c-5", Coordinate: model.Coordinate{Lat: 30.2674, Lng: -97.7433}, Organization: "Acme"},
	}

	out, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "exceeded", out.Report.BudgetStatus)
	require.Len(t, out.Clusters, 2)

	assert.Equal(t, model.SourceVenue, out.Clusters[0].Source)
	assert.Len(t, out.Clusters[0].Contacts, 3)
	assert.Equal(t, model.SourceOrganization, out.Clusters[1].Source)
	assert.Len(t, out.Clusters[1].Contacts, 2)
}

// Transient failures that survive retries mark the location failed without
// aborting the session.
func TestRun_TransientFailureMarksLocation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, Config{BudgetLimitUSD: 0.10})

	contacts := []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.7840, Lng: -122.4010}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.7843, Lng: -122.4012}},
	}

	out, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)

	assert.Empty(t, out.Clusters)
	assert.ElementsMatch(t, []string{"c-1", "c-2"}, out.Report.FailedLocations)
	assert.Zero(t, out.Report.EstimatedCostUSD)
}

// Candidates below the acceptance floor never form a venue cluster.
func TestRun_NoQualifyingCandidate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		b, _ := json.Marshal(map[string]any{
			"places": []map[string]any{{
				"id":          "pl-9",
				"displayName": map[string]any{"text": "Zzz"},
				"location":    map[string]any{"latitude": 37.784, "longitude": -122.401},
				"types":       []string{"restaurant"},
			}},
		})
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, Config{BudgetLimitUSD: 0.10})

	contacts := []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 37.7840, Lng: -122.4010}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 37.7843, Lng: -122.4012}},
	}

	out, err := o.Run(context.Background(), contacts)
	require.NoError(t, err)
	assert.Empty(t, out.Clusters)
	assert.Equal(t, 1, out.Report.ExternalCalls)
}

// Single-contact locations never spend budget.
func TestRun_SingletonsSkipPaidPath(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(mosconePayload())
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL, Config{BudgetLimitUSD: 0.10})

	out, err := o.Run(context.Background(), []model.ContactLocation{
		{ContactID: "c-1", Coordinate: model.Coordinate{Lat: 10, Lng: 10}},
		{ContactID: "c-2", Coordinate: model.Coordinate{Lat: 20, Lng: 20}},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, out.Clusters)
	assert.Zero(t, out.Report.LocationsProcessed)
}

func TestNewOrchestrator_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewOrchestrator(Deps{}, DefaultConfig())
	assert.Error(t, err)

	client := newTestClient(t, "http://127.0.0.1:0")
	_, err = NewOrchestrator(Deps{Client: client}, Config{BudgetLimitUSD: -1})
	assert.Error(t, err)
}
