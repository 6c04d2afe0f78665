package ocr

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otogram/pkg/models"
)

func testReference() CalibrationReference {
	return JacotiLayout.Calibration(image.Rect(0, 0, 800, 600))
}

func TestCalibrateRoundTripsAnchors(t *testing.T) {
	ref := testReference()

	for _, f := range StandardFrequencies {
		for db := 0.0; db <= 120; db += 20 {
			x, y := ref.PixelFor(float64(f), db)
			points := ref.Calibrate([]Marker{{X: x, Y: y, Ear: models.EarLeft}})

			require.Len(t, points, 1)
			p := points[0]
			assert.False(t, p.OutOfRange)
			assert.InEpsilonf(t, float64(f), p.FrequencyHz, 0.02, "frequency at %d Hz", f)
			assert.InDeltaf(t, db, p.ThresholdDB, 0.5, "threshold at %.0f dB", db)
		}
	}
}

func TestCalibrateLogInterpolationBetweenAnchors(t *testing.T) {
	ref := CalibrationReference{
		FrequencyAnchors: []FrequencyAnchor{
			{PixelX: 100, FrequencyHz: 1000},
			{PixelX: 200, FrequencyHz: 4000},
		},
		ThresholdAnchors: []ThresholdAnchor{
			{PixelY: 50, ThresholdDB: 0},
			{PixelY: 250, ThresholdDB: 100},
		},
	}

	// Halfway between 1000 and 4000 on a log axis is 2000.
	points := ref.Calibrate([]Marker{{X: 150, Y: 150, Ear: models.EarRight}})

	require.Len(t, points, 1)
	assert.InEpsilon(t, 2000, points[0].FrequencyHz, 0.001)
	assert.InDelta(t, 50, points[0].ThresholdDB, 0.001)
	assert.False(t, points[0].OutOfRange)
}

func TestCalibrateFlagsPointsOutsidePlot(t *testing.T) {
	ref := testReference()
	minX := ref.FrequencyAnchors[0].PixelX
	maxY := ref.ThresholdAnchors[len(ref.ThresholdAnchors)-1].PixelY

	tests := []struct {
		name   string
		marker Marker
		out    bool
	}{
		{"inside plot", Marker{X: minX + 10, Y: maxY - 10}, false},
		{"left of plot", Marker{X: minX - 5, Y: maxY - 10}, true},
		{"below plot", Marker{X: minX + 10, Y: maxY + 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := ref.Calibrate([]Marker{tt.marker})
			require.Len(t, points, 1)
			assert.Equal(t, tt.out, points[0].OutOfRange)
		})
	}
}

func TestCalibratePreservesEarClass(t *testing.T) {
	ref := testReference()
	x, y := ref.PixelFor(1000, 40)

	points := ref.Calibrate([]Marker{
		{X: x, Y: y, Ear: models.EarLeft},
		{X: x, Y: y, Ear: models.EarRight},
	})

	require.Len(t, points, 2)
	assert.Equal(t, models.EarLeft, points[0].Ear)
	assert.Equal(t, models.EarRight, points[1].Ear)
}

func TestCalibrationAnchorsAreMonotonic(t *testing.T) {
	ref := testReference()

	require.Len(t, ref.FrequencyAnchors, len(StandardFrequencies))
	for i := 1; i < len(ref.FrequencyAnchors); i++ {
		assert.Greater(t, ref.FrequencyAnchors[i].PixelX, ref.FrequencyAnchors[i-1].PixelX)
	}
	require.Len(t, ref.ThresholdAnchors, 7)
	for i := 1; i < len(ref.ThresholdAnchors); i++ {
		assert.Greater(t, ref.ThresholdAnchors[i].PixelY, ref.ThresholdAnchors[i-1].PixelY)
	}
}

func TestCalibrationScalesWithImageSize(t *testing.T) {
	small := JacotiLayout.Calibration(image.Rect(0, 0, 400, 300))
	large := JacotiLayout.Calibration(image.Rect(0, 0, 1600, 1200))

	// The same audiometric coordinate maps to proportional pixel positions.
	sx, sy := small.PixelFor(2000, 60)
	lx, ly := large.PixelFor(2000, 60)
	assert.InDelta(t, float64(sx)*4, float64(lx), 4)
	assert.InDelta(t, float64(sy)*4, float64(ly), 4)
}

func TestCalibrateExtrapolatesAlongOuterSegment(t *testing.T) {
	ref := testReference()
	last := ref.FrequencyAnchors[len(ref.FrequencyAnchors)-1]

	points := ref.Calibrate([]Marker{{X: last.PixelX + 10, Y: ref.ThresholdAnchors[0].PixelY}})

	require.Len(t, points, 1)
	assert.True(t, points[0].OutOfRange)
	assert.False(t, math.IsNaN(points[0].FrequencyHz))
	assert.Greater(t, points[0].FrequencyHz, last.FrequencyHz)
}
