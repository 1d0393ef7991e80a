package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	paris  = Point{Lat: 48.8566, Lng: 2.3522}
	london = Point{Lat: 51.5074, Lng: -0.1278}
)

func TestDistanceKm(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0, DistanceKm(paris, paris), 1e-9)
	assert.InDelta(t, 343.5, DistanceKm(paris, london), 1.5)
	assert.InDelta(t, DistanceKm(paris, london), DistanceKm(london, paris), 1e-9)
}

func TestWithin(t *testing.T) {
	t.Parallel()
	versailles := Point{Lat: 48.8049, Lng: 2.1204}
	orleans := Point{Lat: 47.9030, Lng: 1.9093}

	assert.True(t, Within(paris, versailles, 30))
	assert.False(t, Within(paris, orleans, 30))
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	t.Parallel()
	box := BoundingBox(paris, 30)

	assert.Less(t, box.MinLat, paris.Lat)
	assert.Greater(t, box.MaxLat, paris.Lat)
	assert.Less(t, box.MinLng, paris.Lng)
	assert.Greater(t, box.MaxLng, paris.Lng)

	// A point 29 km due east must fall inside.
	east := Point{Lat: paris.Lat, Lng: paris.Lng + 0.39}
	assert.True(t, Within(paris, east, 30))
	assert.LessOrEqual(t, east.Lng, box.MaxLng)
}

func TestBoundingBoxNearPoleSpansAllLongitudes(t *testing.T) {
	t.Parallel()
	box := BoundingBox(Point{Lat: 89.9, Lng: 10}, 30)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
	assert.Equal(t, 90.0, box.MaxLat)
}
