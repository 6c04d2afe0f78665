package ocr

import (
	"math"

	"otogram/pkg/models"
)

// DefaultExpectedPerEar is the number of markers a fully plotted Jacoti
// chart carries per ear, one per standard frequency.
const DefaultExpectedPerEar = 9

// Confidence scores an extraction in [0, 1] from marker-count completeness,
// frequency coverage, and threshold validity. The marker-count term carries
// half the weight: missing markers are the most common real failure mode.
func Confidence(left, right []models.Measurement, expectedPerEar int) float64 {
	if expectedPerEar <= 0 {
		expectedPerEar = DefaultExpectedPerEar
	}

	found := float64(len(left) + len(right))
	expected := float64(2 * expectedPerEar)
	score := 0.5 * math.Min(found/expected, 1.0)

	unique := make(map[int]struct{})
	valid := 0
	for _, measurements := range [][]models.Measurement{left, right} {
		for _, m := range measurements {
			unique[m.FrequencyHz] = struct{}{}
			if m.ThresholdDB >= MinValidDB && m.ThresholdDB <= MaxValidDB {
				valid++
			}
		}
	}

	score += 0.25 * math.Min(float64(len(unique))/float64(len(StandardFrequencies)), 1.0)
	if found > 0 {
		score += 0.25 * float64(valid) / found
	}

	score = math.Max(0, math.Min(score, 1))
	return math.Round(score*100) / 100
}
