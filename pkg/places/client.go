// Package places is the client for the external place-search API. Every call
// is rate limited, cost-estimated, and classified on failure so quota
// rejections surface immediately while transient errors are retried.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/venue-grouper/internal/cost"
	"github.com/sells-group/venue-grouper/internal/model"
	"github.com/sells-group/venue-grouper/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// Request limits imposed by the API contract.
const (
	MaxRadiusMeters   = 2000.0
	MaxIncludedTypes  = 5
	MaxResultsPerCall = 15
)

// Pacing defaults: a fixed base delay plus a small linear increment per
// prior request in the session.
const (
	defaultBaseDelay      = 200 * time.Millisecond
	defaultDelayIncrement = 50 * time.Millisecond
)

// NearbyRequest is a nearby-search request.
type NearbyRequest struct {
	Center       model.Coordinate
	RadiusMeters float64
	Types        []model.VenueType
	MaxResults   int
	Tier         cost.Tier
}

// TextRequest is a free-text search request with an optional location bias.
type TextRequest struct {
	Query      string
	Bias       *model.Coordinate
	BiasRadius float64
	Tier       cost.Tier
}

// Result is the outcome of one search call.
type Result struct {
	Venues           []model.VenueCandidate
	EstimatedCostUSD float64
}

// Client performs place-search operations.
type Client interface {
	SearchNearby(ctx context.Context, req NearbyRequest) (*Result, error)
	SearchText(ctx context.Context, req TextRequest) (*Result, error)
	BatchSearchNearby(ctx context.Context, reqs []NearbyRequest, maxBatchSize int) (*BatchResult, error)
	// Calls returns the number of requests issued by this client instance.
	// The counter is per-instance and must not be shared across sessions.
	Calls() int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithPacing overrides the base delay and per-call linear increment.
func WithPacing(base, increment time.Duration) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Every(base), 1)
		c.delayIncrement = increment
	}
}

// WithRetryConfig overrides the transient-failure retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

// WithCostRates overrides the per-tier pricing used for estimates.
func WithCostRates(rates cost.Rates) Option {
	return func(c *httpClient) { c.calc = cost.NewCalculator(rates) }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	calc    *cost.Calculator
	retry   resilience.RetryConfig

	limiter        *rate.Limiter
	delayIncrement time.Duration

	mu    sync.Mutex
	calls int
}

// NewClient creates a place-search client. The API key must be non-empty;
// a missing credential is a configuration error caught before any call.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("places: missing API key")
	}
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		calc:           cost.NewCalculator(cost.DefaultRates()),
		retry:          resilience.DefaultRetryConfig(),
		limiter:        rate.NewLimiter(rate.Every(defaultBaseDelay), 1),
		delayIncrement: defaultDelayIncrement,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *httpClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// SearchNearby issues a nearby search. Radius, type count, and result count
// are clamped to the API contract limits.
func (c *httpClient) SearchNearby(ctx context.Context, req NearbyRequest) (*Result, error) {
	radius := req.RadiusMeters
	if radius <= 0 || radius > MaxRadiusMeters {
		radius = MaxRadiusMeters
	}
	types := req.Types
	if len(types) > MaxIncludedTypes {
		types = types[:MaxIncludedTypes]
	}
	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > MaxResultsPerCall {
		maxResults = MaxResultsPerCall
	}

	typeStrings := make([]string, 0, len(types))
	for _, t := range types {
		typeStrings = append(typeStrings, string(t))
	}

	body := searchNearbyRequest{
		LocationRestriction: circleRestriction{
			Circle: circle{
				Center: latLng{Latitude: req.Center.Lat, Longitude: req.Center.Lng},
				Radius: radius,
			},
		},
		IncludedTypes:  typeStrings,
		MaxResultCount: maxResults,
	}
	return c.search(ctx, "/places:searchNearby", body, req.Tier, "nearby search")
}

// SearchText issues a free-text search.
func (c *httpClient) SearchText(ctx context.Context, req TextRequest) (*Result, error) {
	if req.Query == "" {
		return nil, eris.New("places: empty text query")
	}
	body := searchTextRequest{TextQuery: req.Query}
	if req.Bias != nil {
		radius := req.BiasRadius
		if radius <= 0 || radius > MaxRadiusMeters {
			radius = MaxRadiusMeters
		}
		body.LocationBias = &circleRestriction{
			Circle: circle{
				Center: latLng{Latitude: req.Bias.Lat, Longitude: req.Bias.Lng},
				Radius: radius,
			},
		}
	}
	return c.search(ctx, "/places:searchText", body, req.Tier, "text search")
}

func (c *httpClient) search(ctx context.Context, path string, body any, tier cost.Tier, op string) (*Result, error) {
	if err := c.pace(ctx); err != nil {
		return nil, eris.Wrapf(err, "places: %s pacing", op)
	}

	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(op)
	}

	venues, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.VenueCandidate, error) {
		return c.doRequest(ctx, path, body, tier)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "places: %s", op)
	}

	return &Result{
		Venues:           venues,
		EstimatedCostUSD: c.calc.PerCall(tier),
	}, nil
}

// pace applies the base rate limit plus the linear per-prior-call increment,
// then counts the call.
func (c *httpClient) pace(ctx context.Context) error {
	c.mu.Lock()
	prior := c.calls
	c.calls++
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if extra := time.Duration(prior) * c.delayIncrement; extra > 0 {
		timer := time.NewTimer(extra)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (c *httpClient) doRequest(ctx context.Context, path string, body any, tier cost.Tier) ([]model.VenueCandidate, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", FieldMask(tier))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		return nil, resilience.ClassifyHTTPStatus(apiErr, resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "unmarshal response")
	}

	return toCandidates(result.Places), nil
}
