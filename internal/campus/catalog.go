// Package campus matches coordinates against a catalog of known organization
// campuses. Detection is a pure lookup with no network I/O.
package campus

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/venue-grouper/internal/geo"
	"github.com/sells-group/venue-grouper/internal/model"
)

// Confidence levels for a campus match.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Campus is one named campus center for an organization.
type Campus struct {
	Name         string           `yaml:"name"`
	Center       model.Coordinate `yaml:"center"`
	RadiusMeters float64          `yaml:"radius_meters"`
}

// Catalog maps organizations to their known campuses.
type Catalog struct {
	orgs map[string][]Campus // keyed by folded org name
}

// Detection is a confidence-scored campus match.
type Detection struct {
	Organization   string
	CampusName     string
	DistanceMeters float64
	Confidence     string
}

var folder = cases.Fold()

// NormalizeOrg canonicalizes an organization name for catalog lookup.
func NormalizeOrg(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// NewCatalog builds a catalog from org name → campuses. Keys are normalized.
func NewCatalog(orgs map[string][]Campus) *Catalog {
	c := &Catalog{orgs: make(map[string][]Campus, len(orgs))}
	for org, campuses := range orgs {
		c.Add(org, campuses...)
	}
	return c
}

// DefaultCatalog returns the built-in campus catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string][]Campus{
		"Google": {
			{Name: "Googleplex", Center: model.Coordinate{Lat: 37.4220, Lng: -122.0841}, RadiusMeters: 300},
			{Name: "Google SF", Center: model.Coordinate{Lat: 37.7900, Lng: -122.3903}, RadiusMeters: 200},
		},
		"Apple": {
			{Name: "Apple Park", Center: model.Coordinate{Lat: 37.3349, Lng: -122.0090}, RadiusMeters: 250},
			{Name: "Infinite Loop", Center: model.Coordinate{Lat: 37.3318, Lng: -122.0312}, RadiusMeters: 200},
		},
		"Microsoft": {
			{Name: "Redmond Campus", Center: model.Coordinate{Lat: 47.6423, Lng: -122.1391}, RadiusMeters: 350},
		},
		"Meta": {
			{Name: "MPK Campus", Center: model.Coordinate{Lat: 37.4851, Lng: -122.1483}, RadiusMeters: 300},
		},
		"Amazon": {
			{Name: "South Lake Union", Center: model.Coordinate{Lat: 47.6229, Lng: -122.3363}, RadiusMeters: 350},
		},
	})
}

// Add registers campuses for an organization, merging with any already known.
func (c *Catalog) Add(org string, campuses ...Campus) {
	key := NormalizeOrg(org)
	if key == "" {
		return
	}
	c.orgs[key] = append(c.orgs[key], campuses...)
}

// Organizations returns the normalized names of all cataloged organizations.
func (c *Catalog) Organizations() []string {
	names := make([]string, 0, len(c.orgs))
	for org := range c.orgs {
		names = append(names, org)
	}
	return names
}

// Campuses returns the campuses for an organization, or nil if unknown.
func (c *Catalog) Campuses(org string) []Campus {
	return c.orgs[NormalizeOrg(org)]
}

// Detect matches a coordinate against every cataloged campus and returns the
// closest match, or nil when the point is outside all campus radii.
// Confidence is high within half the campus radius, medium within the full
// radius.
func (c *Catalog) Detect(point model.Coordinate) *Detection {
	var best *Detection
	for org, campuses := range c.orgs {
		for _, campus := range campuses {
			d := geo.Distance(point, campus.Center)
			if d > campus.RadiusMeters {
				continue
			}
			if best != nil && d >= best.DistanceMeters {
				continue
			}
			confidence := ConfidenceMedium
			if d <= campus.RadiusMeters/2 {
				confidence = ConfidenceHigh
			}
			best = &Detection{
				Organization:   org,
				CampusName:     campus.Name,
				DistanceMeters: d,
				Confidence:     confidence,
			}
		}
	}
	return best
}
