package clusterval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/venue-grouper/internal/model"
	"github.com/sells-group/venue-grouper/internal/radius"
)

func contactAt(id string, lat, lng float64, org string) model.ContactLocation {
	return model.ContactLocation{
		ContactID:    id,
		Coordinate:   model.Coordinate{Lat: lat, Lng: lng},
		Organization: org,
	}
}

func TestCoherentCluster(t *testing.T) {
	t.Parallel()
	v := New(radius.New())

	// Three contacts within ~80 m of each other.
	tight := []model.ContactLocation{
		contactAt("a", 37.7749, -122.4194, ""),
		contactAt("b", 37.7753, -122.4190, ""),
		contactAt("c", 37.7751, -122.4199, ""),
	}
	assert.True(t, v.CoherentCluster(tight, 100))

	// Adding a member ~1 km away flips the result.
	loose := append(append([]model.ContactLocation{}, tight...),
		contactAt("d", 37.7840, -122.4194, ""))
	assert.False(t, v.CoherentCluster(loose, 100))

	// Trivial clusters are always coherent.
	assert.True(t, v.CoherentCluster(nil, 10))
	assert.True(t, v.CoherentCluster(tight[:1], 10))
}

func TestCoherentCluster_ExactBoundary(t *testing.T) {
	t.Parallel()
	v := New(radius.New())

	a := contactAt("a", 0, 0, "")
	b := contactAt("b", 0.001, 0, "") // ~111 m
	assert.True(t, v.CoherentCluster([]model.ContactLocation{a, b}, 112))
	assert.False(t, v.CoherentCluster([]model.ContactLocation{a, b}, 110))
}

func TestShouldClusterTogether(t *testing.T) {
	t.Parallel()
	v := New(radius.New())

	tests := []struct {
		name string
		a, b model.ContactLocation
		ctx  PairContext
		want bool
	}{
		{
			name: "moderate default accepts 200m",
			a:    contactAt("a", 37.7749, -122.4194, ""),
			b:    contactAt("b", 37.7767, -122.4194, ""), // ~200 m
			want: true,
		},
		{
			name: "moderate default rejects 300m",
			a:    contactAt("a", 37.7749, -122.4194, ""),
			b:    contactAt("b", 37.7776, -122.4194, ""), // ~300 m
			want: false,
		},
		{
			name: "shared event loosens to 500m",
			a:    contactAt("a", 37.7749, -122.4194, ""),
			b:    contactAt("b", 37.7776, -122.4194, ""),
			ctx:  PairContext{SharedEvent: true},
			want: true,
		},
		{
			name: "confirmed same org tightens to 100m",
			a:    contactAt("a", 37.7749, -122.4194, "Acme"),
			b:    contactAt("b", 37.7767, -122.4194, "Acme"), // ~200 m
			ctx:  PairContext{SameOrganizationConfirmed: true},
			want: false,
		},
		{
			name: "same org within tight threshold",
			a:    contactAt("a", 37.7749, -122.4194, "Acme"),
			b:    contactAt("b", 37.7756, -122.4194, "Acme"), // ~78 m
			ctx:  PairContext{SameOrganizationConfirmed: true},
			want: true,
		},
		{
			name: "same org 450m apart rejected despite shared event",
			a:    contactAt("a", 37.4220, -122.0841, "Google"),
			b:    contactAt("b", 37.4260, -122.0841, "Google"), // ~445 m
			ctx:  PairContext{SharedEvent: true},
			want: false, // campus max for google is 300 m
		},
		{
			name: "different orgs keep the loose event threshold",
			a:    contactAt("a", 37.4220, -122.0841, "Google"),
			b:    contactAt("b", 37.4260, -122.0841, "Acme"),
			ctx:  PairContext{SharedEvent: true},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, v.ShouldClusterTogether(tt.a, tt.b, tt.ctx))
		})
	}
}
