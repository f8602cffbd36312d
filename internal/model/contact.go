// Package model defines the core domain types shared across the grouping engine.
package model

import "time"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ContactLocation is a single captured contact position. Immutable once read
// from the contact store.
type ContactLocation struct {
	ContactID    string     `json:"contact_id"`
	Coordinate   Coordinate `json:"coordinate"`
	Organization string     `json:"organization,omitempty"`
	City         string     `json:"city,omitempty"`
	CapturedAt   *time.Time `json:"captured_at,omitempty"`
}

// SearchLocation is a deduplicated focal point aggregating contacts whose
// coordinates coarsen to the same bucket. Created per session, discarded at
// session end.
type SearchLocation struct {
	Center   Coordinate        `json:"center"`
	City     string            `json:"city,omitempty"`
	Contacts []ContactLocation `json:"contacts"`
}

// Priority orders search locations for paid processing: more shared contacts
// means a more valuable external lookup.
func (s SearchLocation) Priority() int {
	return len(s.Contacts)
}

// SharedOrganization returns the organization name common to every member
// contact, or "" if members disagree or any member has none.
func (s SearchLocation) SharedOrganization() string {
	if len(s.Contacts) == 0 {
		return ""
	}
	org := s.Contacts[0].Organization
	if org == "" {
		return ""
	}
	for _, c := range s.Contacts[1:] {
		if c.Organization != org {
			return ""
		}
	}
	return org
}
