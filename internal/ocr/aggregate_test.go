package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otogram/pkg/models"
)

func TestAggregateMedianDeduplication(t *testing.T) {
	points := []CalibratedPoint{
		{Ear: models.EarRight, FrequencyHz: 998, ThresholdDB: 20},
		{Ear: models.EarRight, FrequencyHz: 1004, ThresholdDB: 30},
	}

	left, right, stats := Aggregate(points)

	assert.Empty(t, left)
	require.Len(t, right, 1)
	assert.Equal(t, 1000, right[0].FrequencyHz)
	assert.Equal(t, 25.0, right[0].ThresholdDB)
	assert.Equal(t, 2, stats.Accepted)
}

func TestAggregateOddClusterTakesMiddleValue(t *testing.T) {
	points := []CalibratedPoint{
		{Ear: models.EarLeft, FrequencyHz: 500, ThresholdDB: 40},
		{Ear: models.EarLeft, FrequencyHz: 502, ThresholdDB: 95},
		{Ear: models.EarLeft, FrequencyHz: 498, ThresholdDB: 42},
	}

	left, _, _ := Aggregate(points)

	require.Len(t, left, 1)
	assert.Equal(t, 42.0, left[0].ThresholdDB)
}

func TestAggregateDropsImplausiblePoints(t *testing.T) {
	points := []CalibratedPoint{
		{Ear: models.EarRight, FrequencyHz: 1000, ThresholdDB: -15},
		{Ear: models.EarRight, FrequencyHz: 1000, ThresholdDB: 135},
		{Ear: models.EarRight, FrequencyHz: 2000, ThresholdDB: 50},
	}

	_, right, stats := Aggregate(points)

	require.Len(t, right, 1)
	assert.Equal(t, 2000, right[0].FrequencyHz)
	assert.Equal(t, 2, stats.DroppedImplausible)
	assert.Equal(t, 1, stats.Accepted)
}

func TestAggregateDropsNegativeMedianInsteadOfClamping(t *testing.T) {
	// Within the per-point plausibility band but below the chart's 0 dB
	// line after deduplication: the measurement is discarded, not clamped.
	points := []CalibratedPoint{
		{Ear: models.EarLeft, FrequencyHz: 250, ThresholdDB: -5},
		{Ear: models.EarLeft, FrequencyHz: 250, ThresholdDB: -3},
	}

	left, _, stats := Aggregate(points)

	assert.Empty(t, left)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.DroppedMeasurements)
}

func TestAggregateDropsFarFrequencies(t *testing.T) {
	points := []CalibratedPoint{
		// Beyond half an octave past either end of the ladder.
		{Ear: models.EarRight, FrequencyHz: 40, ThresholdDB: 30},
		{Ear: models.EarRight, FrequencyHz: 30000, ThresholdDB: 30},
		{Ear: models.EarRight, FrequencyHz: 0, ThresholdDB: 30},
	}

	_, right, stats := Aggregate(points)

	assert.Empty(t, right)
	assert.Equal(t, 3, stats.DroppedSnapDistance)
}

func TestSnapFrequencyTieBreakAtGeometricMidpoint(t *testing.T) {
	// The geometric midpoint of 500 and 1000 sits near 707 Hz; up to that
	// boundary the lower step wins, past it the upper step does.
	snapped, ok := snapFrequency(707)
	require.True(t, ok)
	assert.Equal(t, 500, snapped)

	snapped, ok = snapFrequency(708)
	require.True(t, ok)
	assert.Equal(t, 1000, snapped)
}

func TestAggregateSnapsMidBandPoints(t *testing.T) {
	// Points past a geometric midpoint but within half an octave of the
	// upper step snap up instead of vanishing.
	points := []CalibratedPoint{
		{Ear: models.EarLeft, FrequencyHz: 750, ThresholdDB: 20},
		{Ear: models.EarLeft, FrequencyHz: 1450, ThresholdDB: 40},
	}

	left, _, stats := Aggregate(points)

	require.Len(t, left, 2)
	assert.Equal(t, 1000, left[0].FrequencyHz)
	assert.Equal(t, 2000, left[1].FrequencyHz)
	assert.Equal(t, 0, stats.DroppedSnapDistance)
}

func TestAggregateCountsOutOfPlotDrift(t *testing.T) {
	points := []CalibratedPoint{
		// Slight drift past the 0 dB gridline stays in play; gross overshoot
		// is still implausible.
		{Ear: models.EarLeft, FrequencyHz: 250, ThresholdDB: -4, OutOfRange: true},
		{Ear: models.EarLeft, FrequencyHz: 250, ThresholdDB: 6},
		{Ear: models.EarLeft, FrequencyHz: 1000, ThresholdDB: 140, OutOfRange: true},
	}

	left, _, stats := Aggregate(points)

	require.Len(t, left, 1)
	assert.Equal(t, 250, left[0].FrequencyHz)
	assert.Equal(t, 1.0, left[0].ThresholdDB)
	assert.Equal(t, 2, stats.OutOfPlot)
	assert.Equal(t, 1, stats.DroppedImplausible)
}

func TestAggregateOutputOrderedByFrequency(t *testing.T) {
	points := []CalibratedPoint{
		{Ear: models.EarLeft, FrequencyHz: 8000, ThresholdDB: 60},
		{Ear: models.EarLeft, FrequencyHz: 125, ThresholdDB: 10},
		{Ear: models.EarLeft, FrequencyHz: 1000, ThresholdDB: 30},
	}

	left, _, _ := Aggregate(points)

	require.Len(t, left, 3)
	assert.Equal(t, []int{125, 1000, 8000}, []int{
		left[0].FrequencyHz, left[1].FrequencyHz, left[2].FrequencyHz,
	})
}

func TestAggregateRoundsToOneDecimal(t *testing.T) {
	points := []CalibratedPoint{
		{Ear: models.EarRight, FrequencyHz: 4000, ThresholdDB: 33.333},
	}

	_, right, _ := Aggregate(points)

	require.Len(t, right, 1)
	assert.Equal(t, 33.3, right[0].ThresholdDB)
}
