package places

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/venue-grouper/internal/resilience"
)

// DefaultMaxBatchSize bounds how many nearby searches run per batch.
const DefaultMaxBatchSize = 3

// interBatchDelay separates consecutive batches.
const interBatchDelay = 500 * time.Millisecond

// batchQuotaTrip is the consecutive-quota-failure count that aborts remaining
// batch work: the last two calls both rejected on quota.
const batchQuotaTrip = 2

// BatchItem is the outcome for one location in a batch.
type BatchItem struct {
	Request NearbyRequest
	Result  *Result
	Err     error
}

// BatchResult summarizes a batch run. Aborted is set when the quota circuit
// opened before all requests were attempted; unattempted requests carry
// ErrCircuitOpen.
type BatchResult struct {
	Items   []BatchItem
	Aborted bool
}

// BatchSearchNearby processes the requests in batches of maxBatchSize,
// sequentially within a batch, with a delay between batches. A circuit
// breaker aborts remaining work once two consecutive calls fail on quota.
func (c *httpClient) BatchSearchNearby(ctx context.Context, reqs []NearbyRequest, maxBatchSize int) (*BatchResult, error) {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}

	log := zap.L().With(zap.String("component", "places.batch"))
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: batchQuotaTrip,
		ResetTimeout:     time.Hour, // never half-opens within one batch run
	})

	out := &BatchResult{Items: make([]BatchItem, 0, len(reqs))}

	for start := 0; start < len(reqs); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(reqs) {
			end = len(reqs)
		}

		for _, req := range reqs[start:end] {
			res, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*Result, error) {
				return c.SearchNearby(ctx, req)
			})
			out.Items = append(out.Items, BatchItem{Request: req, Result: res, Err: err})

			if err != nil && resilience.IsQuota(err) {
				log.Warn("quota rejection in batch", zap.Int("consecutive", cb.ConsecutiveFailures()))
			}
			if cb.State() == resilience.CircuitOpen {
				out.Aborted = true
			}
		}

		if out.Aborted {
			// Mark everything not yet attempted.
			for _, req := range reqs[end:] {
				out.Items = append(out.Items, BatchItem{Request: req, Err: resilience.ErrCircuitOpen})
			}
			log.Warn("batch aborted after consecutive quota failures",
				zap.Int("attempted", end),
				zap.Int("total", len(reqs)),
			)
			return out, nil
		}

		if end < len(reqs) {
			timer := time.NewTimer(interBatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return out, nil
}
