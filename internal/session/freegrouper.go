package session

import (
	"sort"

	"github.com/google/uuid"

	"github.com/sells-group/venue-grouper/internal/campus"
	"github.com/sells-group/venue-grouper/internal/clusterval"
	"github.com/sells-group/venue-grouper/internal/geo"
	"github.com/sells-group/venue-grouper/internal/model"
)

// FreeGrouper groups contacts without any external API spend. It receives
// every contact the paid path skipped, failed, or could not afford.
type FreeGrouper interface {
	Group(contacts []model.ContactLocation) []model.Cluster
}

// OrgGrouper is the default free grouper: it buckets contacts by normalized
// organization name and splits each bucket into geographically coherent
// clusters using the pairwise validator.
type OrgGrouper struct {
	validator *clusterval.Validator
}

// NewOrgGrouper creates the default organization-name free grouper.
func NewOrgGrouper(v *clusterval.Validator) *OrgGrouper {
	return &OrgGrouper{validator: v}
}

// Group clusters same-organization contacts. Singletons are dropped: a group
// of one says nothing about contacts having met.
func (g *OrgGrouper) Group(contacts []model.ContactLocation) []model.Cluster {
	byOrg := make(map[string][]model.ContactLocation)
	for _, c := range contacts {
		org := campus.NormalizeOrg(c.Organization)
		if org == "" {
			continue
		}
		byOrg[org] = append(byOrg[org], c)
	}

	orgs := make([]string, 0, len(byOrg))
	for org := range byOrg {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)

	var clusters []model.Cluster
	for _, org := range orgs {
		members := byOrg[org]
		sort.Slice(members, func(i, j int) bool { return members[i].ContactID < members[j].ContactID })

		for _, group := range g.split(members) {
			if len(group) < 2 {
				continue
			}
			coords := make([]model.Coordinate, 0, len(group))
			for _, m := range group {
				coords = append(coords, m.Coordinate)
			}
			confidence := 0.5
			clusters = append(clusters, model.Cluster{
				ID:           uuid.NewString(),
				Contacts:     group,
				Organization: org,
				Centroid:     geo.Centroid(coords),
				Confidence:   confidence,
				Tier:         model.TierForConfidence(confidence),
				Source:       model.SourceOrganization,
			})
		}
	}
	return clusters
}

// split greedily partitions same-organization contacts: a contact joins a
// group only if it pairs with every existing member.
func (g *OrgGrouper) split(members []model.ContactLocation) [][]model.ContactLocation {
	ctx := clusterval.PairContext{SameOrganizationConfirmed: true}

	var groups [][]model.ContactLocation
next:
	for _, m := range members {
		for i, group := range groups {
			fits := true
			for _, existing := range group {
				if !g.validator.ShouldClusterTogether(m, existing, ctx) {
					fits = false
					break
				}
			}
			if fits {
				groups[i] = append(groups[i], m)
				continue next
			}
		}
		groups = append(groups, []model.ContactLocation{m})
	}
	return groups
}
