package geo

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"transitguide.org/internal/models"
)

var (
	artInstitute = models.Point{Lat: 41.8819, Lon: -87.6278}
	adamsWabash  = models.Point{Lat: 41.8757, Lon: -87.6244}
	michiganBus  = models.Point{Lat: 41.8800, Lon: -87.6300}
)

func TestDistanceKnownValues(t *testing.T) {
	// Reference values computed independently with Vincenty's inverse formula on WGS84.
	tests := []struct {
		name  string
		a, b  models.Point
		miles float64
		tol   float64
	}{
		{"art institute to adams/wabash", artInstitute, adamsWabash, 0.4624, 0.00005},
		{"art institute to michigan bus stop", artInstitute, michiganBus, 0.1734, 0.00005},
		{"art institute to wrigley field", artInstitute, models.Point{Lat: 41.9484, Lon: -87.6553}, 4.8036, 0.00005},
		{"jfk to changi", models.Point{Lat: 40.64, Lon: -73.78}, models.Point{Lat: 1.36, Lon: 103.99}, 9536.5024, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.miles, got, tt.tol)
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		a := models.Point{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
		b := models.Point{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}

		ab, err := Distance(a, b)
		require.NoError(t, err)
		ba, err := Distance(b, a)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, ab, 0.0)
		assert.InEpsilon(t, ab, ba, 1e-9, "a=%v b=%v", a, b)
	}
}

func TestDistanceSamePointIsZero(t *testing.T) {
	for _, p := range []models.Point{artInstitute, {Lat: 90, Lon: 0}, {Lat: -90, Lon: 180}, {Lat: 0, Lon: 0}} {
		d, err := Distance(p, p)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	}
}

func TestDistanceAntipodal(t *testing.T) {
	d, err := Distance(models.Point{Lat: 0, Lon: 0}, models.Point{Lat: 0, Lon: 180})
	require.NoError(t, err)
	// Half the meridian circumference, 20003.93 km.
	assert.InDelta(t, 20003931.46/metersPerMile, d, 0.01)
}

func TestDistanceInvalidCoordinate(t *testing.T) {
	tests := []models.Point{
		{Lat: 90.0001, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 180.5},
		{Lat: 0, Lon: -181},
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.Inf(1)},
	}

	for _, p := range tests {
		_, err := Distance(artInstitute, p)
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("Distance(%v) error = %v, want ErrInvalidCoordinate", p, err)
		}
		_, err = Distance(p, artInstitute)
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("Distance(%v) reversed error = %v, want ErrInvalidCoordinate", p, err)
		}
	}
}

func TestMilesToKm(t *testing.T) {
	assert.InDelta(t, 1.60934, MilesToKm(1), 1e-12)
	assert.Equal(t, 0.0, MilesToKm(0))
}
