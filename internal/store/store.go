// Package store persists contact locations, produced clusters, session
// reports, and the long-lived venue cache tier.
package store

import (
	"context"
	"time"

	"github.com/sells-group/venue-grouper/internal/model"
)

// DefaultVenueCacheTTL is the lifetime of the persistent venue cache tier,
// backing the in-memory cache for cross-session reuse.
const DefaultVenueCacheTTL = 4 * time.Hour

// Store defines the persistence interface for the grouping engine.
type Store interface {
	// Contacts
	AddContactLocations(ctx context.Context, contacts []model.ContactLocation) (int, error)
	ListContactLocations(ctx context.Context) ([]model.ContactLocation, error)

	// Clusters
	SaveClusters(ctx context.Context, sessionID string, clusters []model.Cluster) error
	ListClusters(ctx context.Context, sessionID string) ([]model.Cluster, error)

	// Persistent venue cache tier. Found distinguishes a cached empty
	// response from an absent key. A zero ttl uses the store default;
	// a negative ttl writes an already-expired entry.
	GetCachedVenues(ctx context.Context, key string) (venues []model.VenueCandidate, found bool, err error)
	SetCachedVenues(ctx context.Context, key string, venues []model.VenueCandidate, ttl time.Duration) error
	DeleteExpiredVenueCache(ctx context.Context) (int, error)

	// Session reports
	SaveReport(ctx context.Context, report model.SessionReport) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
