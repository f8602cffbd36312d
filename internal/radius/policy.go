// Package radius computes adaptive search radii for venue lookups. The policy
// is pure and deterministic: the same inputs always yield the same radius.
package radius

import "github.com/sells-group/venue-grouper/internal/model"

// Absolute clamps applied to every resolved radius, in meters.
const (
	FloorMeters   = 100.0
	CeilingMeters = 600.0
)

// TypePolicy holds the base search radius for one venue type.
type TypePolicy struct {
	BaseMeters float64
}

// CityPolicy adjusts radii for a known city. CorporateMode marks dense
// campus-heavy cities where searches are clamped hard regardless of venue type.
type CityPolicy struct {
	Multiplier    float64
	CorporateMode bool
	MaxMeters     float64 // only honored when CorporateMode is set
}

// OrgPolicy clamps radii for organizations with known tight campuses.
type OrgPolicy struct {
	TightClustering bool
	MaxMeters       float64
}

// Policy resolves search radii from typed lookup tables.
type Policy struct {
	types       map[model.VenueType]TypePolicy
	cities      map[string]CityPolicy
	orgs        map[string]OrgPolicy
	defaultBase float64
}

// New creates a Policy with the default tables.
func New() *Policy {
	return &Policy{
		types:       defaultTypePolicies(),
		cities:      defaultCityPolicies(),
		orgs:        defaultOrgPolicies(),
		defaultBase: 250,
	}
}

// WithOrgPolicy registers or overrides the clamp for one organization.
// Lookup is by the already-normalized organization key.
func (p *Policy) WithOrgPolicy(org string, op OrgPolicy) *Policy {
	p.orgs[org] = op
	return p
}

// Resolve computes the search radius in meters for the requested venue types,
// optional city, and optional organization context.
func (p *Policy) Resolve(types []model.VenueType, city, org string) float64 {
	var r float64
	for _, t := range types {
		if tp, ok := p.types[t]; ok && tp.BaseMeters > r {
			r = tp.BaseMeters
		}
	}
	// The default base covers only requests where no type resolved.
	if r == 0 {
		r = p.defaultBase
	}

	if cp, ok := p.cities[city]; ok && city != "" {
		r *= cp.Multiplier
		if cp.CorporateMode && r > cp.MaxMeters {
			r = cp.MaxMeters
		}
	}

	if op, ok := p.orgs[org]; ok && org != "" && op.TightClustering && r > op.MaxMeters {
		r = op.MaxMeters
	}

	if r < FloorMeters {
		r = FloorMeters
	}
	if r > CeilingMeters {
		r = CeilingMeters
	}
	return r
}

// OrgMaxRadius returns the campus clamp for an organization, or 0 if the
// organization has no tight-clustering policy.
func (p *Policy) OrgMaxRadius(org string) float64 {
	if op, ok := p.orgs[org]; ok && op.TightClustering {
		return op.MaxMeters
	}
	return 0
}

func defaultTypePolicies() map[model.VenueType]TypePolicy {
	return map[model.VenueType]TypePolicy{
		model.VenueOffice:           {BaseMeters: 200},
		model.VenueBuilding:         {BaseMeters: 150},
		model.VenueConventionCenter: {BaseMeters: 1000},
		model.VenueExpo:             {BaseMeters: 800},
		model.VenueStadium:          {BaseMeters: 500},
		model.VenueArena:            {BaseMeters: 400},
		model.VenueRestaurant:       {BaseMeters: 150},
		model.VenueDefault:          {BaseMeters: 250},
	}
}

func defaultCityPolicies() map[string]CityPolicy {
	return map[string]CityPolicy{
		"mountain view": {Multiplier: 0.4, CorporateMode: true, MaxMeters: 400},
		"cupertino":     {Multiplier: 0.3, CorporateMode: true, MaxMeters: 400},
		"redmond":       {Multiplier: 0.4, CorporateMode: true, MaxMeters: 400},
		"menlo park":    {Multiplier: 0.5, CorporateMode: true, MaxMeters: 400},
		"san francisco": {Multiplier: 0.5},
		"new york":      {Multiplier: 0.5},
		"seattle":       {Multiplier: 0.6},
		"las vegas":     {Multiplier: 1.2},
		"austin":        {Multiplier: 1.0},
	}
}

func defaultOrgPolicies() map[string]OrgPolicy {
	return map[string]OrgPolicy{
		"google":    {TightClustering: true, MaxMeters: 300},
		"apple":     {TightClustering: true, MaxMeters: 250},
		"microsoft": {TightClustering: true, MaxMeters: 350},
		"meta":      {TightClustering: true, MaxMeters: 300},
		"amazon":    {TightClustering: true, MaxMeters: 350},
	}
}
