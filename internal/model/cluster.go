package model

import "time"

// SimilarityTier buckets cluster confidence for downstream consumers.
type SimilarityTier string

const (
	TierHigh   SimilarityTier = "high"
	TierMedium SimilarityTier = "medium"
	TierLow    SimilarityTier = "low"
)

// TierForConfidence maps a confidence score to its similarity tier.
func TierForConfidence(confidence float64) SimilarityTier {
	switch {
	case confidence >= 0.75:
		return TierHigh
	case confidence >= 0.45:
		return TierMedium
	default:
		return TierLow
	}
}

// ClusterSource records which path produced a cluster.
type ClusterSource string

const (
	SourceVenue        ClusterSource = "venue"
	SourceOrganization ClusterSource = "organization"
	SourceFree         ClusterSource = "free"
)

// Cluster is a group of contacts believed to have been at the same place or
// event, with zero or one associated venue.
type Cluster struct {
	ID           string            `json:"id"`
	Contacts     []ContactLocation `json:"contacts"`
	Venue        *VenueCandidate   `json:"venue,omitempty"`
	Organization string            `json:"organization,omitempty"`
	Centroid     Coordinate        `json:"centroid"`
	Confidence   float64           `json:"confidence"`
	Tier         SimilarityTier    `json:"tier"`
	Source       ClusterSource     `json:"source"`
}

// SessionReport is the per-session observability/billing summary.
// ActualCostUSD mirrors EstimatedCostUSD until reconciled against a provider
// billing feed; downstream billing reads the actual field.
type SessionReport struct {
	SessionID          string    `json:"session_id"`
	LocationsProcessed int       `json:"locations_processed"`
	CacheHits          int       `json:"cache_hits"`
	CacheMisses        int       `json:"cache_misses"`
	ExternalCalls      int       `json:"external_calls"`
	EstimatedCostUSD   float64   `json:"estimated_cost_usd"`
	ActualCostUSD      float64   `json:"actual_cost_usd"`
	ClusterCount       int       `json:"cluster_count"`
	FailedLocations    []string  `json:"failed_locations,omitempty"`
	BudgetStatus       string    `json:"budget_status"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

// CacheHitRate returns the fraction of lookups served from cache.
func (r SessionReport) CacheHitRate() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}
