package geo

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	for _, p := range []Point{{0, 0}, {55.75, 37.61}, {-33.8688, 151.2093}, {89.9, -179.9}} {
		assert.Zero(t, DistanceMeters(p, p))
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := Point{Lat: 40.7128, Lon: -74.0060}
	b := Point{Lat: 51.5074, Lon: -0.1278}
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
}

func TestDistanceMeters_OneDegreeAtEquator(t *testing.T) {
	d := DistanceMeters(Point{0, 0}, Point{0, 1})
	assert.InEpsilon(t, 111320.0, d, 0.01)
}

func TestDistanceMeters_MonotonicInSeparation(t *testing.T) {
	origin := Point{Lat: 10, Lon: 10}
	prev := 0.0
	for step := 1; step <= 10; step++ {
		d := DistanceMeters(origin, Point{Lat: 10, Lon: 10 + float64(step)*0.5})
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestNearestDistance_Empty(t *testing.T) {
	_, ok := NearestDistance(Point{1, 1}, nil)
	assert.False(t, ok)
}

func TestNearestDistance_SelfIsZero(t *testing.T) {
	p := Point{Lat: 55.75, Lon: 37.61}
	d, ok := NearestDistance(p, []Point{p})
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestNearestDistance_PicksMinimum(t *testing.T) {
	p := Point{Lat: 0, Lon: 0}
	d, ok := NearestDistance(p, []Point{{0, 2}, {0, 1}, {3, 3}})
	require.True(t, ok)
	assert.InDelta(t, DistanceMeters(p, Point{0, 1}), d, 1e-6)
}

func TestIndex_Empty(t *testing.T) {
	_, ok := NewIndex().Nearest(Point{0, 0})
	assert.False(t, ok)
}

func TestIndex_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	index := NewIndex()
	points := make([]Point, 0, 2000)

	// город примерно 20x20 км
	for i := 0; i < 2000; i++ {
		p := Point{Lat: 55.6 + rng.Float64()*0.2, Lon: 37.4 + rng.Float64()*0.3}
		points = append(points, p)
		index.Insert(uuid.New(), p)
	}
	require.Equal(t, 2000, index.Len())

	for q := 0; q < 50; q++ {
		query := Point{Lat: 55.6 + rng.Float64()*0.2, Lon: 37.4 + rng.Float64()*0.3}
		want, _ := NearestDistance(query, points)
		got, ok := index.Nearest(query)
		require.True(t, ok)
		assert.InDelta(t, want, got, 1e-6)
	}
}

func TestIndex_AcrossAntimeridian(t *testing.T) {
	index := NewIndex()
	points := []Point{{Lat: 0, Lon: -179.999}}
	for i := 0; i < 20; i++ {
		points = append(points, Point{Lat: float64(i) * 0.001, Lon: 179.9})
	}
	for _, p := range points {
		index.Insert(uuid.New(), p)
	}

	for _, query := range []Point{{Lat: 0, Lon: 179.999}, {Lat: 0, Lon: -179.95}, {Lat: 0.01, Lon: 180}} {
		want, _ := NearestDistance(query, points)
		got, ok := index.Nearest(query)
		require.True(t, ok)
		assert.InDelta(t, want, got, 1e-6, "query %+v", query)
	}

	got, _ := index.Nearest(Point{Lat: 0, Lon: 179.999})
	assert.Less(t, got, 300.0)
}

func TestIndex_DuplicateIDIgnoredAndReset(t *testing.T) {
	index := NewIndex()
	id := uuid.New()
	index.Insert(id, Point{1, 1})
	index.Insert(id, Point{2, 2})
	assert.Equal(t, 1, index.Len())

	index.Reset()
	assert.Zero(t, index.Len())
}
