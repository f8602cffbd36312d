package campus

import (
	"os"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/venue-grouper/internal/model"
)

// catalogFile is the YAML shape of a campus catalog file.
type catalogFile struct {
	Organizations map[string][]campusEntry `yaml:"organizations"`
}

type campusEntry struct {
	Name         string  `yaml:"name"`
	Lat          float64 `yaml:"lat"`
	Lng          float64 `yaml:"lng"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// LoadYAML reads a campus catalog from a YAML file and merges it over the
// default catalog.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "campus: read catalog %s", path)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "campus: parse catalog %s", path)
	}

	catalog := DefaultCatalog()
	for org, entries := range file.Organizations {
		for _, e := range entries {
			if e.RadiusMeters <= 0 {
				return nil, eris.Errorf("campus: %s/%s has non-positive radius", org, e.Name)
			}
			catalog.Add(org, Campus{
				Name:         e.Name,
				Center:       model.Coordinate{Lat: e.Lat, Lng: e.Lng},
				RadiusMeters: e.RadiusMeters,
			})
		}
	}
	return catalog, nil
}

// LoadShapefile merges campus centers from a point shapefile into the given
// catalog. Required attribute fields: ORG, NAME, RADIUS_M. Non-point shapes
// and records with a missing ORG are skipped.
func LoadShapefile(catalog *Catalog, path string) error {
	reader, err := shp.Open(path)
	if err != nil {
		return eris.Wrapf(err, "campus: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	orgIdx := fieldIndex(reader, "ORG")
	nameIdx := fieldIndex(reader, "NAME")
	radiusIdx := fieldIndex(reader, "RADIUS_M")
	if orgIdx < 0 || nameIdx < 0 || radiusIdx < 0 {
		return eris.New("campus: required shapefile fields (ORG, NAME, RADIUS_M) not found")
	}

	log := zap.L().With(zap.String("component", "campus.loader"))

	var loaded, skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		org := strings.TrimSpace(reader.Attribute(orgIdx))
		name := strings.TrimSpace(reader.Attribute(nameIdx))
		if org == "" {
			skipped++
			continue
		}

		radius := parseRadius(reader.Attribute(radiusIdx))
		if radius <= 0 {
			radius = 250 // campus-scale default when the attribute is absent
		}

		catalog.Add(org, Campus{
			Name:         name,
			Center:       model.Coordinate{Lat: point.Y, Lng: point.X},
			RadiusMeters: radius,
		})
		loaded++
	}

	log.Info("loaded campus shapefile",
		zap.String("path", path),
		zap.Int("loaded", loaded),
		zap.Int("skipped", skipped),
	)
	return nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func parseRadius(attr string) float64 {
	r, err := strconv.ParseFloat(strings.TrimSpace(attr), 64)
	if err != nil {
		return 0
	}
	return r
}
