package geo_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zonegrid/presence-service/internal/domain"
	"github.com/zonegrid/presence-service/internal/geo"
)

// square polygon around Shibuya: 35.658–35.668 N, 139.698–139.708 E
func shibuya() []domain.Point {
	return []domain.Point{
		{Latitude: 35.658, Longitude: 139.698},
		{Latitude: 35.668, Longitude: 139.698},
		{Latitude: 35.668, Longitude: 139.708},
		{Latitude: 35.658, Longitude: 139.708},
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name   string
		point  domain.Point
		inside bool
	}{
		{"center", domain.Point{Latitude: 35.663, Longitude: 139.703}, true},
		{"near north edge", domain.Point{Latitude: 35.6679, Longitude: 139.703}, true},
		{"outside north", domain.Point{Latitude: 35.700, Longitude: 139.800}, false},
		{"outside west", domain.Point{Latitude: 35.663, Longitude: 139.690}, false},
		{"far away", domain.Point{Latitude: -12.0, Longitude: 30.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, geo.Contains(tt.point, shibuya()))
		})
	}
}

func TestContainsTriangle(t *testing.T) {
	tri := []domain.Point{
		{Latitude: 0, Longitude: 0},
		{Latitude: 10, Longitude: 0},
		{Latitude: 0, Longitude: 10},
	}
	assert.True(t, geo.Contains(domain.Point{Latitude: 2, Longitude: 2}, tri))
	assert.False(t, geo.Contains(domain.Point{Latitude: 6, Longitude: 6}, tri))
}

func TestContainsDegeneratePolygon(t *testing.T) {
	two := []domain.Point{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}}
	assert.False(t, geo.Contains(domain.Point{Latitude: 0.5, Longitude: 0.5}, two))
	assert.False(t, geo.Contains(domain.Point{}, nil))
}

// Random points strictly inside the square are inside; points outside the
// bounding box are outside.
func TestContainsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	poly := shibuya()

	for i := 0; i < 500; i++ {
		in := domain.Point{
			Latitude:  35.658 + 0.0001 + rng.Float64()*(0.010-0.0002),
			Longitude: 139.698 + 0.0001 + rng.Float64()*(0.010-0.0002),
		}
		assert.True(t, geo.Contains(in, poly), "point %+v must be inside", in)

		out := domain.Point{
			Latitude:  35.7 + rng.Float64()*10,
			Longitude: 140.0 + rng.Float64()*10,
		}
		assert.False(t, geo.Contains(out, poly), "point %+v must be outside", out)
	}
}

// Boundary behavior must be deterministic: same polygon, same point, same
// answer on repeated calls.
func TestContainsBoundaryDeterministic(t *testing.T) {
	poly := shibuya()
	onEdge := domain.Point{Latitude: 35.658, Longitude: 139.703}

	first := geo.Contains(onEdge, poly)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, geo.Contains(onEdge, poly))
	}
}

func TestValidPoint(t *testing.T) {
	assert.True(t, geo.ValidPoint(domain.Point{Latitude: 35.6, Longitude: 139.7}))
	assert.False(t, geo.ValidPoint(domain.Point{Latitude: 91, Longitude: 0}))
	assert.False(t, geo.ValidPoint(domain.Point{Latitude: 0, Longitude: -181}))
}
