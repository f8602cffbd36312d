// Package session runs one bounded grouping session: it deduplicates contact
// locations, routes the highest-value ones through the paid place-search path
// under a budget gate, and degrades to free grouping for everything else.
package session

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-grouper/internal/budget"
	"github.com/sells-group/venue-grouper/internal/cache"
	"github.com/sells-group/venue-grouper/internal/campus"
	"github.com/sells-group/venue-grouper/internal/clusterval"
	"github.com/sells-group/venue-grouper/internal/cost"
	"github.com/sells-group/venue-grouper/internal/geo"
	"github.com/sells-group/venue-grouper/internal/model"
	"github.com/sells-group/venue-grouper/internal/radius"
	"github.com/sells-group/venue-grouper/internal/resilience"
	"github.com/sells-group/venue-grouper/internal/store"
	"github.com/sells-group/venue-grouper/pkg/places"
)

// Campus-detection confidence translated to cluster confidence.
const (
	campusHighConfidence   = 0.8
	campusMediumConfidence = 0.6
)

// Deps are the collaborators a session orchestrator is built from. Client is
// required; everything else defaults when nil.
type Deps struct {
	Client    places.Client
	Cache     *cache.ResultCache
	Store     store.Store // optional persistent cache tier
	Radius    *radius.Policy
	Campuses  *campus.Catalog
	Validator *clusterval.Validator
	Costs     *cost.Calculator
	Free      FreeGrouper
}

// Orchestrator runs grouping sessions. Safe for sequential reuse; each Run
// owns its own budget monitor and circuit breaker.
type Orchestrator struct {
	client    places.Client
	cache     *cache.ResultCache
	store     store.Store
	radius    *radius.Policy
	campuses  *campus.Catalog
	validator *clusterval.Validator
	costs     *cost.Calculator
	free      FreeGrouper
	cfg       Config
	log       *zap.Logger
}

// Outcome is the result of one grouping session.
type Outcome struct {
	Clusters []model.Cluster
	Report   model.SessionReport
}

// NewOrchestrator wires a session orchestrator from its collaborators.
func NewOrchestrator(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Client == nil {
		return nil, eris.New("session: place-search client is required")
	}
	if cfg.BudgetLimitUSD < 0 {
		return nil, budget.ErrInvalidLimit
	}
	cfg = cfg.withDefaults()

	if deps.Cache == nil {
		deps.Cache = cache.New(0, 0)
	}
	if deps.Radius == nil {
		deps.Radius = radius.New()
	}
	if deps.Campuses == nil {
		deps.Campuses = campus.DefaultCatalog()
	}
	if deps.Validator == nil {
		deps.Validator = clusterval.New(deps.Radius)
	}
	if deps.Costs == nil {
		deps.Costs = cost.NewCalculator(cost.DefaultRates())
	}
	if deps.Free == nil {
		deps.Free = NewOrgGrouper(deps.Validator)
	}

	return &Orchestrator{
		client:    deps.Client,
		cache:     deps.Cache,
		store:     deps.Store,
		radius:    deps.Radius,
		campuses:  deps.Campuses,
		validator: deps.Validator,
		costs:     deps.Costs,
		free:      deps.Free,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "session")),
	}, nil
}

// Run groups the given contacts and returns the clusters plus a session
// report. Exceeding the budget is not an error; clusters computed before
// exhaustion are kept and remaining work degrades to the free grouper.
func (o *Orchestrator) Run(ctx context.Context, contacts []model.ContactLocation) (*Outcome, error) {
	monitor, err := budget.New(o.cfg.BudgetLimitUSD)
	if err != nil {
		return nil, eris.Wrap(err, "session: create budget monitor")
	}

	report := model.SessionReport{
		SessionID: uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	o.log.Info("session started",
		zap.String("session_id", report.SessionID),
		zap.Int("contacts", len(contacts)),
		zap.Float64("budget_usd", monitor.Limit()),
	)

	callsBefore := o.client.Calls()
	locations := o.dedupe(contacts)
	paid, freePool := o.partition(locations)

	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())

	var clusters []model.Cluster
	for i, loc := range paid {
		report.LocationsProcessed++

		if cl, ok := o.campusCluster(loc); ok {
			if cl != nil {
				clusters = append(clusters, *cl)
			} else {
				freePool = append(freePool, loc.Contacts...)
			}
			continue
		}

		venues, searchRadius, outcome := o.lookupVenues(ctx, loc, monitor, breaker, &report)
		if outcome == lookupBudgetExhausted {
			// Everything from here on is processed only by free methods.
			freePool = append(freePool, loc.Contacts...)
			for _, rest := range paid[i+1:] {
				freePool = append(freePool, rest.Contacts...)
			}
			o.log.Warn("budget exhausted, degrading to free grouping",
				zap.String("session_id", report.SessionID),
				zap.Float64("spent_usd", monitor.Spent()),
			)
			break
		}
		if outcome == lookupSkipped {
			freePool = append(freePool, loc.Contacts...)
			continue
		}

		cl := o.venueCluster(loc, venues, searchRadius)
		if cl == nil {
			freePool = append(freePool, loc.Contacts...)
			continue
		}
		clusters = append(clusters, *cl)
	}

	clusters = append(clusters, o.free.Group(freePool)...)

	report.ExternalCalls = o.client.Calls() - callsBefore
	report.EstimatedCostUSD = monitor.Spent()
	// Per-call rates are fixed, so actual equals estimated until a provider
	// billing feed exists to reconcile against.
	report.ActualCostUSD = report.EstimatedCostUSD
	report.ClusterCount = len(clusters)
	report.BudgetStatus = string(monitor.Status())
	report.FinishedAt = time.Now().UTC()

	o.log.Info("session finished",
		zap.String("session_id", report.SessionID),
		zap.Int("clusters", report.ClusterCount),
		zap.Int("external_calls", report.ExternalCalls),
		zap.Float64("spent_usd", report.ActualCostUSD),
		zap.Float64("cache_hit_rate", report.CacheHitRate()),
	)

	return &Outcome{Clusters: clusters, Report: report}, nil
}

type lookupOutcome int

const (
	lookupOK lookupOutcome = iota
	lookupSkipped
	lookupBudgetExhausted
)

// lookupVenues resolves venue candidates for one location: memory cache,
// then the persistent tier, then a budget-gated external call.
func (o *Orchestrator) lookupVenues(
	ctx context.Context,
	loc model.SearchLocation,
	monitor *budget.Monitor,
	breaker *resilience.CircuitBreaker,
	report *model.SessionReport,
) ([]model.VenueCandidate, float64, lookupOutcome) {
	org := campus.NormalizeOrg(loc.SharedOrganization())
	types := searchTypes(org)
	searchRadius := o.radius.Resolve(types, strings.ToLower(loc.City), org)
	key := cache.Key(loc.Center, searchRadius, types, o.cfg.CoarsenDecimals)

	if venues, ok := o.cache.Get(key); ok {
		report.CacheHits++
		return venues, searchRadius, lookupOK
	}
	if o.store != nil {
		if venues, found, err := o.store.GetCachedVenues(ctx, key); err == nil && found {
			report.CacheHits++
			o.cache.Set(key, venues, o.cfg.CacheTTL)
			return venues, searchRadius, lookupOK
		}
	}
	report.CacheMisses++

	estimate := o.costs.PerCall(o.cfg.Tier)
	if !monitor.CanAfford(estimate) {
		return nil, searchRadius, lookupBudgetExhausted
	}

	res, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*places.Result, error) {
		return o.client.SearchNearby(ctx, places.NearbyRequest{
			Center:       loc.Center,
			RadiusMeters: searchRadius,
			Types:        types,
			Tier:         o.cfg.Tier,
		})
	})
	if err != nil {
		switch {
		case eris.Is(err, resilience.ErrCircuitOpen):
			o.log.Warn("place search suppressed by open circuit", zap.String("key", key))
		case resilience.IsQuota(err):
			o.log.Warn("place search quota exceeded", zap.String("key", key), zap.Error(err))
		default:
			o.log.Warn("place search failed", zap.String("key", key), zap.Error(err))
			for _, c := range loc.Contacts {
				report.FailedLocations = append(report.FailedLocations, c.ContactID)
			}
		}
		return nil, searchRadius, lookupSkipped
	}

	monitor.AddCost(res.EstimatedCostUSD)
	o.cache.Set(key, res.Venues, o.cfg.CacheTTL)
	if o.store != nil {
		if err := o.store.SetCachedVenues(ctx, key, res.Venues, o.cfg.PersistTTL); err != nil {
			o.log.Warn("persistent cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res.Venues, searchRadius, lookupOK
}

// campusCluster short-circuits the paid path when a location sits on a known
// organization campus. The second return value reports whether the campus
// path claimed the location; a (nil, true) result means the location matched
// a campus but failed coherence and belongs to the free pool.
func (o *Orchestrator) campusCluster(loc model.SearchLocation) (*model.Cluster, bool) {
	det := o.campuses.Detect(loc.Center)
	if det == nil {
		return nil, false
	}
	sharedOrg := campus.NormalizeOrg(loc.SharedOrganization())
	if det.Confidence != campus.ConfidenceHigh && det.Organization != sharedOrg {
		return nil, false
	}

	maxDistance := o.radius.OrgMaxRadius(det.Organization)
	if maxDistance <= 0 {
		maxDistance = clusterval.ModerateThresholdMeters
	}
	if len(loc.Contacts) < 2 || !o.validator.CoherentCluster(loc.Contacts, maxDistance) {
		return nil, true
	}

	confidence := campusMediumConfidence
	if det.Confidence == campus.ConfidenceHigh {
		confidence = campusHighConfidence
	}

	o.log.Debug("campus short-circuit",
		zap.String("organization", det.Organization),
		zap.String("campus", det.CampusName),
		zap.Int("contacts", len(loc.Contacts)),
	)
	return &model.Cluster{
		ID:           uuid.NewString(),
		Contacts:     loc.Contacts,
		Organization: det.Organization,
		Centroid:     geo.Centroid(coordinates(loc.Contacts)),
		Confidence:   confidence,
		Tier:         model.TierForConfidence(confidence),
		Source:       model.SourceOrganization,
	}, true
}

// venueCluster scores the candidates for a location and builds a cluster
// around the best one. Nil when no candidate qualifies or the cluster is not
// geometrically coherent.
func (o *Orchestrator) venueCluster(loc model.SearchLocation, venues []model.VenueCandidate, maxDistance float64) *model.Cluster {
	org := loc.SharedOrganization()
	best, score := bestCandidate(venues, searchTypes(campus.NormalizeOrg(org)), contextKeywords(org, loc.City))
	if best == nil {
		return nil
	}
	if !o.validator.CoherentCluster(loc.Contacts, maxDistance) {
		return nil
	}

	return &model.Cluster{
		ID:           uuid.NewString(),
		Contacts:     loc.Contacts,
		Venue:        best,
		Organization: campus.NormalizeOrg(org),
		Centroid:     geo.Centroid(coordinates(loc.Contacts)),
		Confidence:   score,
		Tier:         model.TierForConfidence(score),
		Source:       model.SourceVenue,
	}
}

// dedupe buckets contacts into search locations by coarsened coordinate.
// Each location's center is the centroid of its members, not the bucket
// corner, so campus detection and radius resolution see a representative
// point. Cache keys re-coarsen the center, so key stability is unaffected.
func (o *Orchestrator) dedupe(contacts []model.ContactLocation) []model.SearchLocation {
	byBucket := make(map[model.Coordinate]*model.SearchLocation)
	var order []model.Coordinate
	for _, c := range contacts {
		bucket := geo.Coarsen(c.Coordinate, o.cfg.CoarsenDecimals)
		loc, ok := byBucket[bucket]
		if !ok {
			loc = &model.SearchLocation{}
			byBucket[bucket] = loc
			order = append(order, bucket)
		}
		loc.Contacts = append(loc.Contacts, c)
		if loc.City == "" {
			loc.City = c.City
		}
	}

	locations := make([]model.SearchLocation, 0, len(order))
	for _, bucket := range order {
		loc := *byBucket[bucket]
		loc.Center = geo.Centroid(coordinates(loc.Contacts))
		locations = append(locations, loc)
	}

	// Highest priority first; stable so insertion order breaks ties.
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Priority() > locations[j].Priority()
	})
	return locations
}

// partition splits locations into the paid top-K and the free remainder.
// Single-contact locations never enter the paid path: a venue lookup for one
// contact cannot reveal who met whom.
func (o *Orchestrator) partition(locations []model.SearchLocation) (paid []model.SearchLocation, freePool []model.ContactLocation) {
	for _, loc := range locations {
		if len(paid) < o.cfg.MaxPaidLocations && len(loc.Contacts) >= 2 {
			paid = append(paid, loc)
			continue
		}
		freePool = append(freePool, loc.Contacts...)
	}
	return paid, freePool
}

// searchTypes selects the venue types to request: office-scale types for a
// shared-organization location, gathering venues otherwise.
func searchTypes(org string) []model.VenueType {
	if org != "" {
		return []model.VenueType{model.VenueOffice, model.VenueBuilding}
	}
	return []model.VenueType{model.VenueConventionCenter, model.VenueExpo, model.VenueDefault}
}

func coordinates(contacts []model.ContactLocation) []model.Coordinate {
	coords := make([]model.Coordinate, 0, len(contacts))
	for _, c := range contacts {
		coords = append(coords, c.Coordinate)
	}
	return coords
}
