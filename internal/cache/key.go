package cache

import (
	"fmt"
	"math"
	"sort"

	"github.com/sells-group/venue-grouper/internal/geo"
	"github.com/sells-group/venue-grouper/internal/model"
)

// radiusStepMeters is the increment search radii are rounded up to when
// building cache keys.
const radiusStepMeters = 500

// maxKeyTypes caps how many venue types participate in a key.
const maxKeyTypes = 2

// Key builds a coarsened cache key for a nearby search. Keys deliberately
// trade precision for hit rate: coordinates are rounded to coarsenDecimals
// places, the radius rounds up to the nearest 500 m, and only the first two
// sorted venue types are included. Keys carry geometry and type only, never
// contact identifiers, so entries are reusable across sessions.
func Key(center model.Coordinate, radiusMeters float64, types []model.VenueType, coarsenDecimals int) string {
	c := geo.Coarsen(center, coarsenDecimals)

	r := int(math.Ceil(radiusMeters/radiusStepMeters)) * radiusStepMeters
	if r < radiusStepMeters {
		r = radiusStepMeters
	}

	sorted := make([]string, 0, len(types))
	for _, t := range types {
		sorted = append(sorted, string(t))
	}
	sort.Strings(sorted)
	if len(sorted) > maxKeyTypes {
		sorted = sorted[:maxKeyTypes]
	}

	key := fmt.Sprintf("%.*f,%.*f|r%d", coarsenDecimals, c.Lat, coarsenDecimals, c.Lng, r)
	for _, t := range sorted {
		key += "|" + t
	}
	return key
}
