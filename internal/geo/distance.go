// Package geo provides great-circle distance, coordinate coarsening, and
// centroid math for the grouping engine.
package geo

import (
	"math"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/venue-grouper/internal/model"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula. NaN inputs produce NaN output;
// callers validate upstream.
func Distance(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Coarsen rounds a coordinate to the given number of decimal places. Two
// decimals puts points in roughly 1.1 km buckets at the equator.
func Coarsen(c model.Coordinate, decimals int) model.Coordinate {
	scale := math.Pow(10, float64(decimals))
	return model.Coordinate{
		Lat: math.Round(c.Lat*scale) / scale,
		Lng: math.Round(c.Lng*scale) / scale,
	}
}

// Centroid returns the arithmetic center of the given coordinates. Adequate
// for the sub-kilometer extents clusters are validated against.
func Centroid(coords []model.Coordinate) model.Coordinate {
	if len(coords) == 0 {
		return model.Coordinate{}
	}
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c.Lng, c.Lat)
	}
	center := xy.MultiPointCentroid(geom.NewMultiPointFlat(geom.XY, flat))
	return model.Coordinate{Lat: center.Y(), Lng: center.X()}
}

// MaxPairwiseDistance returns the largest distance between any two of the
// given contacts. Zero for fewer than two members.
func MaxPairwiseDistance(contacts []model.ContactLocation) float64 {
	var max float64
	for i := 0; i < len(contacts); i++ {
		for j := i + 1; j < len(contacts); j++ {
			if d := Distance(contacts[i].Coordinate, contacts[j].Coordinate); d > max {
				max = d
			}
		}
	}
	return max
}
