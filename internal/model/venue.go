package model

// VenueType categorizes a physical venue, mirroring the place-search API's
// included-type vocabulary.
type VenueType string

// Venue types with dedicated radius policies. Anything else falls back to
// VenueDefault.
const (
	VenueOffice           VenueType = "corporate_office"
	VenueBuilding         VenueType = "office_building"
	VenueConventionCenter VenueType = "convention_center"
	VenueExpo             VenueType = "event_venue"
	VenueStadium          VenueType = "stadium"
	VenueArena            VenueType = "arena"
	VenueRestaurant       VenueType = "restaurant"
	VenueDefault          VenueType = "point_of_interest"
)

// VenueCandidate is a place returned by the external place-search API (or the
// result cache). Read-only once constructed.
type VenueCandidate struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Coordinate     Coordinate  `json:"coordinate"`
	Types          []VenueType `json:"types,omitempty"`
	Rating         float64     `json:"rating,omitempty"`
	RatingCount    int         `json:"rating_count,omitempty"`
	BusinessStatus string      `json:"business_status,omitempty"`
	Address        string      `json:"address,omitempty"`
	PriceLevel     string      `json:"price_level,omitempty"`
}

// Valid reports whether the candidate carries the minimum fields needed for
// scoring. Malformed candidates are discarded, never fatal.
func (v VenueCandidate) Valid() bool {
	return v.ID != "" && v.Name != "" && (v.Coordinate.Lat != 0 || v.Coordinate.Lng != 0)
}
