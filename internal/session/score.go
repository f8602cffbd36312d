package session

import (
	"strings"

	"github.com/sells-group/venue-grouper/internal/model"
)

// Candidate scoring weights and acceptance floor.
const (
	typeMatchWeight   = 0.6
	nameMatchWeight   = 0.4
	minCandidateScore = 0.3
)

// genericVenueKeywords match venue names regardless of session context.
var genericVenueKeywords = []string{
	"conference", "convention", "center", "centre", "expo", "event",
	"hall", "pavilion", "campus", "plaza",
}

// scoreCandidate rates a venue candidate against the requested types and
// contextual keywords. Malformed candidates score zero and are discarded.
func scoreCandidate(v model.VenueCandidate, wanted []model.VenueType, keywords []string) float64 {
	if !v.Valid() {
		return 0
	}

	var score float64
	if typesOverlap(v.Types, wanted) {
		score += typeMatchWeight
	}

	name := strings.ToLower(v.Name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, kw) {
			score += nameMatchWeight
			break
		}
	}
	return score
}

// bestCandidate returns the highest-scoring candidate at or above the
// acceptance floor, or nil when none qualifies.
func bestCandidate(venues []model.VenueCandidate, wanted []model.VenueType, keywords []string) (*model.VenueCandidate, float64) {
	var (
		best *model.VenueCandidate
		top  float64
	)
	for i := range venues {
		if s := scoreCandidate(venues[i], wanted, keywords); s >= minCandidateScore && s > top {
			best = &venues[i]
			top = s
		}
	}
	return best, top
}

func typesOverlap(have, wanted []model.VenueType) bool {
	for _, h := range have {
		for _, w := range wanted {
			if h == w {
				return true
			}
		}
	}
	return false
}

// contextKeywords builds the name-match keyword set for a search location.
func contextKeywords(org, city string) []string {
	kws := make([]string, 0, len(genericVenueKeywords)+4)
	if org != "" {
		kws = append(kws, strings.Fields(strings.ToLower(org))...)
	}
	if city != "" {
		kws = append(kws, strings.ToLower(city))
	}
	return append(kws, genericVenueKeywords...)
}
