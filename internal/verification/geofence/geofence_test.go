package geofence

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/verification"
)

var venue = Point{Lat: 52.5200, Lng: 13.4050}

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		d, err := Distance(venue, venue)
		require.NoError(t, err)
		assert.Zero(t, d)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d, err := Distance(Point{0, 0}, Point{1, 0})
		require.NoError(t, err)
		assert.InDelta(t, 111_195, d, 1)
	})

	t.Run("symmetric", func(t *testing.T) {
		other := Point{Lat: 48.8566, Lng: 2.3522}
		ab, err := Distance(venue, other)
		require.NoError(t, err)
		ba, err := Distance(other, venue)
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-6)
	})

	t.Run("antipodal points stay finite", func(t *testing.T) {
		d, err := Distance(Point{0, 0}, Point{0, 180})
		require.NoError(t, err)
		assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1)
	})
}

func TestWithinRadius(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		radius float64
		inside bool
	}{
		{name: "80m inside 100m", point: Offset(venue, 80), radius: 100, inside: true},
		{name: "150m outside 100m", point: Offset(venue, 150), radius: 100, inside: false},
		{name: "zero radius at center", point: venue, radius: 0, inside: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := WithinRadius(venue, tt.point, tt.radius)
			require.NoError(t, err)
			assert.Equal(t, tt.inside, res.Inside)
		})
	}

	t.Run("boundary counts as inside", func(t *testing.T) {
		p := Offset(venue, 100)
		d, err := Distance(venue, p)
		require.NoError(t, err)
		res, err := WithinRadius(venue, p, d)
		require.NoError(t, err)
		assert.True(t, res.Inside)
	})
}

func TestWithinRadiusErrors(t *testing.T) {
	tests := []struct {
		name   string
		center Point
		point  Point
		radius float64
		reason verification.Reason
	}{
		{name: "NaN latitude", center: venue, point: Point{Lat: math.NaN(), Lng: 0}, radius: 10, reason: verification.ReasonInvalidCoordinates},
		{name: "infinite longitude", center: Point{Lat: 0, Lng: math.Inf(1)}, point: venue, radius: 10, reason: verification.ReasonInvalidCoordinates},
		{name: "latitude out of range", center: venue, point: Point{Lat: 91, Lng: 0}, radius: 10, reason: verification.ReasonInvalidCoordinates},
		{name: "negative radius", center: venue, point: venue, radius: -1, reason: verification.ReasonInvalidRadius},
		{name: "NaN radius", center: venue, point: venue, radius: math.NaN(), reason: verification.ReasonInvalidRadius},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WithinRadius(tt.center, tt.point, tt.radius)
			require.Error(t, err)
			reason, ok := verification.ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestWithinRadiusProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		center := Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
		point := Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
		radius := rng.Float64() * 20_000_000

		res, err := WithinRadius(center, point, radius)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.DistanceMeters, 0.0)
		assert.Equal(t, res.DistanceMeters <= radius, res.Inside)
	}
}
