package ocr

import (
	"math"
	"sort"

	"otogram/pkg/models"
)

// StandardFrequencies is the audiometric ladder recognized by the system,
// ascending. Jacoti charts plot one marker per ladder step and ear.
var StandardFrequencies = []int{64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

const (
	// MinValidDB and MaxValidDB bound the chart's dB HL scale. Final
	// measurements outside this range are dropped, never clamped.
	MinValidDB = 0.0
	MaxValidDB = 120.0

	// Individual calibrated points may drift slightly past the plot edges
	// on skewed photographs; this band is the per-point plausibility limit.
	minPlausibleDB = -10.0
	maxPlausibleDB = 130.0

	// Points farther than half an octave from every standard frequency are
	// stray detections; the ladder is octave-spaced.
	snapToleranceOctaves = 0.5
)

// PointOutcome records why a calibrated point did or did not contribute to
// the final measurements.
type PointOutcome int

const (
	PointAccepted PointOutcome = iota
	PointDroppedImplausible
	PointDroppedSnapDistance
)

// AggregateStats summarizes point dispositions. Only these counts surface
// outside the aggregator; individual outcomes stay internal.
type AggregateStats struct {
	Accepted            int
	OutOfPlot           int
	DroppedImplausible  int
	DroppedSnapDistance int
	DroppedMeasurements int
}

// Aggregate snaps calibrated points to the standard frequency ladder,
// deduplicates multiple detections per (ear, frequency) by median, and
// discards implausible values. Each ear's list carries at most one
// measurement per frequency, in ascending ladder order.
func Aggregate(points []CalibratedPoint) (left, right []models.Measurement, stats AggregateStats) {
	groups := map[models.Ear]map[int][]float64{
		models.EarLeft:  {},
		models.EarRight: {},
	}

	for _, p := range points {
		if p.OutOfRange {
			stats.OutOfPlot++
		}
		snapped, outcome := disposition(p)
		switch outcome {
		case PointDroppedImplausible:
			stats.DroppedImplausible++
		case PointDroppedSnapDistance:
			stats.DroppedSnapDistance++
		default:
			stats.Accepted++
			groups[p.Ear][snapped] = append(groups[p.Ear][snapped], p.ThresholdDB)
		}
	}

	left = earMeasurements(groups[models.EarLeft], &stats)
	right = earMeasurements(groups[models.EarRight], &stats)
	return left, right, stats
}

// disposition classifies a single calibrated point. Points flagged out of
// the plot rectangle are judged by the same plausibility band as everything
// else: slight drift past a gridline survives, gross overshoot is dropped.
func disposition(p CalibratedPoint) (int, PointOutcome) {
	if p.ThresholdDB < minPlausibleDB || p.ThresholdDB > maxPlausibleDB {
		return 0, PointDroppedImplausible
	}
	snapped, ok := snapFrequency(p.FrequencyHz)
	if !ok {
		return 0, PointDroppedSnapDistance
	}
	return snapped, PointAccepted
}

// snapFrequency rounds a continuous frequency to the nearest standard
// frequency, measured in octaves to match the ladder's log spacing and the
// tolerance band. Ties at a geometric midpoint go to the lower frequency;
// points beyond the tolerance band report false.
func snapFrequency(f float64) (int, bool) {
	if f <= 0 {
		return 0, false
	}
	best := StandardFrequencies[0]
	bestDiff := math.Abs(math.Log2(f / float64(best)))
	for _, sf := range StandardFrequencies[1:] {
		// Strict < keeps the lower frequency on equidistant points.
		if d := math.Abs(math.Log2(f / float64(sf))); d < bestDiff {
			best, bestDiff = sf, d
		}
	}
	if bestDiff > snapToleranceOctaves {
		return 0, false
	}
	return best, true
}

// earMeasurements collapses one ear's grouped thresholds into final
// measurements, walking the ladder in order so output is deterministic.
func earMeasurements(groups map[int][]float64, stats *AggregateStats) []models.Measurement {
	out := make([]models.Measurement, 0, len(groups))
	for _, f := range StandardFrequencies {
		values := groups[f]
		if len(values) == 0 {
			continue
		}
		// Median over mean: a single false detection should not skew the
		// final threshold.
		m := median(values)
		if m < MinValidDB || m > MaxValidDB {
			stats.DroppedMeasurements++
			continue
		}
		out = append(out, models.Measurement{
			FrequencyHz: f,
			ThresholdDB: math.Round(m*10) / 10,
		})
	}
	return out
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
