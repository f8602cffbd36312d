// Package clusterval validates pairwise and cluster-level grouping decisions
// against geometric coherence and contextual similarity.
package clusterval

import (
	"github.com/sells-group/venue-grouper/internal/campus"
	"github.com/sells-group/venue-grouper/internal/geo"
	"github.com/sells-group/venue-grouper/internal/model"
	"github.com/sells-group/venue-grouper/internal/radius"
)

// Pairwise distance thresholds in meters.
const (
	TightThresholdMeters    = 100.0
	ModerateThresholdMeters = 250.0
	LooseThresholdMeters    = 500.0
)

// PairContext carries the contextual signals available when deciding whether
// two contacts belong together.
type PairContext struct {
	// SameOrganizationConfirmed means both contacts carry the same non-empty
	// organization name.
	SameOrganizationConfirmed bool
	// SharedEvent means an explicit shared-event signal was supplied by the
	// caller. Only this justifies the loose threshold.
	SharedEvent bool
}

// Validator makes clustering accept/reject decisions.
type Validator struct {
	radiusPolicy *radius.Policy
}

// New creates a Validator using the given radius policy for organization
// campus clamps.
func New(rp *radius.Policy) *Validator {
	return &Validator{radiusPolicy: rp}
}

// CoherentCluster reports whether every pairwise distance among the contacts
// is within maxDistanceMeters. O(n²), fine for the small clusters produced
// here.
func (v *Validator) CoherentCluster(contacts []model.ContactLocation, maxDistanceMeters float64) bool {
	for i := 0; i < len(contacts); i++ {
		for j := i + 1; j < len(contacts); j++ {
			if geo.Distance(contacts[i].Coordinate, contacts[j].Coordinate) > maxDistanceMeters {
				return false
			}
		}
	}
	return true
}

// ShouldClusterTogether decides whether two contacts belong in the same
// cluster given their distance and context.
func (v *Validator) ShouldClusterTogether(a, b model.ContactLocation, ctx PairContext) bool {
	threshold := ModerateThresholdMeters
	if ctx.SharedEvent {
		threshold = LooseThresholdMeters
	}
	if ctx.SameOrganizationConfirmed {
		threshold = TightThresholdMeters
	}

	// Same-organization pairs are always bound by the organization's campus
	// maximum, regardless of how the threshold was chosen.
	if a.Organization != "" && a.Organization == b.Organization {
		if orgMax := v.radiusPolicy.OrgMaxRadius(campus.NormalizeOrg(a.Organization)); orgMax > 0 && threshold > orgMax {
			threshold = orgMax
		}
	}

	return geo.Distance(a.Coordinate, b.Coordinate) <= threshold
}
