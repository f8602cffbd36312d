package places

import (
	"go.uber.org/zap"

	"github.com/sells-group/venue-grouper/internal/cost"
	"github.com/sells-group/venue-grouper/internal/model"
)

// fieldMasks maps each tier to the X-Goog-FieldMask it requests. More fields
// means a higher per-call price, so minimal is the default everywhere.
var fieldMasks = map[cost.Tier]string{
	cost.TierMinimal:  "places.id,places.displayName,places.location,places.types",
	cost.TierStandard: "places.id,places.displayName,places.location,places.types,places.rating,places.businessStatus,places.formattedAddress",
	cost.TierEnhanced: "places.id,places.displayName,places.location,places.types,places.rating,places.businessStatus,places.formattedAddress,places.priceLevel,places.userRatingCount",
}

// FieldMask returns the field mask for a tier, defaulting to minimal for
// unknown tiers.
func FieldMask(tier cost.Tier) string {
	if m, ok := fieldMasks[tier]; ok {
		return m
	}
	return fieldMasks[cost.TierMinimal]
}

// Wire types for the place-search API v1 JSON surface. Payloads are parsed
// into these structs and validated at the client boundary; malformed places
// are dropped, never silently half-filled.

type searchNearbyRequest struct {
	LocationRestriction circleRestriction `json:"locationRestriction"`
	IncludedTypes       []string          `json:"includedTypes,omitempty"`
	MaxResultCount      int               `json:"maxResultCount,omitempty"`
}

type searchTextRequest struct {
	TextQuery    string             `json:"textQuery"`
	LocationBias *circleRestriction `json:"locationBias,omitempty"`
}

type circleRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchResponse struct {
	Places []wirePlace `json:"places"`
}

type wirePlace struct {
	ID              string      `json:"id"`
	DisplayName     displayName `json:"displayName"`
	Location        *latLng     `json:"location"`
	Types           []string    `json:"types"`
	Rating          float64     `json:"rating"`
	UserRatingCount int         `json:"userRatingCount"`
	BusinessStatus  string      `json:"businessStatus"`
	Address         string      `json:"formattedAddress"`
	PriceLevel      string      `json:"priceLevel"`
}

type displayName struct {
	Text string `json:"text"`
}

// toCandidates converts wire places to venue candidates, discarding any
// entry missing an id, name, or coordinate.
func toCandidates(places []wirePlace) []model.VenueCandidate {
	out := make([]model.VenueCandidate, 0, len(places))
	for _, p := range places {
		if p.ID == "" || p.DisplayName.Text == "" || p.Location == nil {
			zap.L().Debug("discarding malformed place", zap.String("id", p.ID))
			continue
		}
		types := make([]model.VenueType, 0, len(p.Types))
		for _, t := range p.Types {
			types = append(types, model.VenueType(t))
		}
		out = append(out, model.VenueCandidate{
			ID:             p.ID,
			Name:           p.DisplayName.Text,
			Coordinate:     model.Coordinate{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
			Types:          types,
			Rating:         p.Rating,
			RatingCount:    p.UserRatingCount,
			BusinessStatus: p.BusinessStatus,
			Address:        p.Address,
			PriceLevel:     p.PriceLevel,
		})
	}
	return out
}
