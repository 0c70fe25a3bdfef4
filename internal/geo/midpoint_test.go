package geo

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reach-cli/internal/errs"
)

func TestMidpointEmpty(t *testing.T) {
	_, err := Midpoint(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, errs.ErrValidation))
}

func TestMidpointSinglePoint(t *testing.T) {
	mid, err := Midpoint([][2]float64{{45.0, -75.0}})
	require.NoError(t, err)
	assert.Equal(t, [2]float64{45.0, -75.0}, mid)
}

func TestMidpointIdenticalPoints(t *testing.T) {
	mid, err := Midpoint([][2]float64{{45.0, -75.0}, {45.0, -75.0}, {45.0, -75.0}})
	require.NoError(t, err)
	assert.InDelta(t, 45.0, mid[0], 1e-5)
	assert.InDelta(t, -75.0, mid[1], 1e-5)
}

func TestMidpointEquatorHalfway(t *testing.T) {
	mid, err := Midpoint([][2]float64{{0, 0}, {0, 180}})
	require.NoError(t, err)
	assert.InDelta(t, 0, mid[0], 1e-5)
	assert.InDelta(t, 90, mid[1], 1e-4)
}

func TestMidpointUSCities(t *testing.T) {
	coords := [][2]float64{
		{40.7128, -74.0060},  // New York
		{34.0522, -118.2437}, // Los Angeles
		{41.8781, -87.6298},  // Chicago
		{29.7604, -95.3698},  // Houston
	}
	mid, err := Midpoint(coords)
	require.NoError(t, err)
	assert.InDelta(t, 36.8889, mid[0], 1e-4)
	assert.InDelta(t, -94.0756, mid[1], 1e-4)
}

func TestMidpointUSCitiesOrderInsensitive(t *testing.T) {
	coords := [][2]float64{
		{29.7604, -95.3698},
		{41.8781, -87.6298},
		{34.0522, -118.2437},
		{40.7128, -74.0060},
	}
	mid, err := Midpoint(coords)
	require.NoError(t, err)
	assert.InDelta(t, 36.8889, mid[0], 1e-4)
	assert.InDelta(t, -94.0756, mid[1], 1e-4)
}

func TestMidpointAntipodalPoles(t *testing.T) {
	mid, err := Midpoint([][2]float64{{90, 0}, {-90, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0, mid[0], 1e-5)
}

func TestMidpointDateLine(t *testing.T) {
	mid, err := Midpoint([][2]float64{{45, 170}, {45, -170}})
	require.NoError(t, err)
	assert.InDelta(t, 45, mid[0], 1e-5)
	assert.InDelta(t, 180, math.Abs(mid[1]), 1e-5)
}

func TestMidpointDateLineNegativeFirst(t *testing.T) {
	mid, err := Midpoint([][2]float64{{45, -170}, {45, 170}})
	require.NoError(t, err)
	assert.Equal(t, [2]float64{45, -180}, mid)
}

func TestMidpointPoleAndEquator(t *testing.T) {
	mid, err := Midpoint([][2]float64{{90, 0}, {0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 45.0, mid[0], 1e-5)
	assert.InDelta(t, 0.0, mid[1], 1e-5)
}

func TestMidpointCrossingDateLineCluster(t *testing.T) {
	// Both sides of the date line; adjusted averaging keeps the result
	// near the cluster instead of the far side of the globe.
	mid, err := Midpoint([][2]float64{{10, 175}, {10, -175}, {20, 179}})
	require.NoError(t, err)
	assert.Greater(t, math.Abs(mid[1]), 170.0)
}
