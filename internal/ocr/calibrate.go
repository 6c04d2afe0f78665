package ocr

import (
	"image"
	"math"

	"otogram/pkg/models"
)

// FrequencyAnchor ties a pixel column to a frequency on the chart's
// logarithmic x axis.
type FrequencyAnchor struct {
	PixelX      int
	FrequencyHz float64
}

// ThresholdAnchor ties a pixel row to a dB HL value on the chart's linear
// y axis. Pixel y and dB both grow downward.
type ThresholdAnchor struct {
	PixelY      int
	ThresholdDB float64
}

// CalibrationReference is the immutable set of anchor points defining a
// chart's axis mapping. Anchors must be sorted by pixel position and contain
// at least two entries per axis. Supporting a different chart format means
// substituting a different reference, not branching in the calibrator.
type CalibrationReference struct {
	FrequencyAnchors []FrequencyAnchor
	ThresholdAnchors []ThresholdAnchor
}

// CalibratedPoint is a marker converted into audiometric coordinates. Points
// whose pixel fell outside the calibrated plot rectangle are flagged rather
// than rejected; the aggregator decides their fate.
type CalibratedPoint struct {
	Ear         models.Ear
	FrequencyHz float64
	ThresholdDB float64
	OutOfRange  bool
}

// Calibrate converts detected markers into continuous audiometric
// coordinates, carrying the ear class through unchanged.
func (c CalibrationReference) Calibrate(markers []Marker) []CalibratedPoint {
	points := make([]CalibratedPoint, 0, len(markers))
	for _, m := range markers {
		freq, outX := c.frequencyAt(m.X)
		db, outY := c.thresholdAt(m.Y)
		points = append(points, CalibratedPoint{
			Ear:         m.Ear,
			FrequencyHz: freq,
			ThresholdDB: db,
			OutOfRange:  outX || outY,
		})
	}
	return points
}

// frequencyAt interpolates logarithmically between the two nearest x-axis
// anchors. Pixels outside the anchored span extrapolate along the outermost
// segment and are reported out of range.
func (c CalibrationReference) frequencyAt(x int) (float64, bool) {
	a := c.FrequencyAnchors
	out := x < a[0].PixelX || x > a[len(a)-1].PixelX

	i := segmentFor(len(a), x, func(k int) int { return a[k].PixelX })
	lo, hi := a[i], a[i+1]
	t := float64(x-lo.PixelX) / float64(hi.PixelX-lo.PixelX)
	logF := math.Log10(lo.FrequencyHz) + t*(math.Log10(hi.FrequencyHz)-math.Log10(lo.FrequencyHz))
	return math.Pow(10, logF), out
}

// thresholdAt interpolates linearly between the two nearest y-axis anchors.
func (c CalibrationReference) thresholdAt(y int) (float64, bool) {
	a := c.ThresholdAnchors
	out := y < a[0].PixelY || y > a[len(a)-1].PixelY

	i := segmentFor(len(a), y, func(k int) int { return a[k].PixelY })
	lo, hi := a[i], a[i+1]
	t := float64(y-lo.PixelY) / float64(hi.PixelY-lo.PixelY)
	return lo.ThresholdDB + t*(hi.ThresholdDB-lo.ThresholdDB), out
}

// PixelFor returns the pixel position of an audiometric coordinate. It is
// the inverse of Calibrate and is used to place markers when rendering
// synthetic charts.
func (c CalibrationReference) PixelFor(freqHz, db float64) (x, y int) {
	fa := c.FrequencyAnchors
	i := segmentForValue(len(fa), freqHz, func(k int) float64 { return fa[k].FrequencyHz })
	lo, hi := fa[i], fa[i+1]
	t := (math.Log10(freqHz) - math.Log10(lo.FrequencyHz)) / (math.Log10(hi.FrequencyHz) - math.Log10(lo.FrequencyHz))
	x = lo.PixelX + int(math.Round(t*float64(hi.PixelX-lo.PixelX)))

	ta := c.ThresholdAnchors
	j := segmentForValue(len(ta), db, func(k int) float64 { return ta[k].ThresholdDB })
	ylo, yhi := ta[j], ta[j+1]
	u := (db - ylo.ThresholdDB) / (yhi.ThresholdDB - ylo.ThresholdDB)
	y = ylo.PixelY + int(math.Round(u*float64(yhi.PixelY-ylo.PixelY)))
	return x, y
}

// segmentFor picks the anchor segment [i, i+1] containing pixel p, clamping
// to the outermost segment when p lies beyond the anchored span.
func segmentFor(n, p int, pixel func(int) int) int {
	for i := 0; i < n-1; i++ {
		if p <= pixel(i+1) {
			return i
		}
	}
	return n - 2
}

// segmentForValue is segmentFor over anchor values instead of pixels.
func segmentForValue(n int, v float64, value func(int) float64) int {
	for i := 0; i < n-1; i++ {
		if v <= value(i+1) {
			return i
		}
	}
	return n - 2
}

// ChartLayout describes where the plot rectangle sits inside a chart image,
// as fractions of the image size. It instantiates a CalibrationReference for
// a concrete image resolution.
type ChartLayout struct {
	FooterFraction float64
	PlotLeft       float64 // x fraction of the lowest-frequency gridline
	PlotRight      float64 // x fraction of the highest-frequency gridline
	PlotTop        float64 // y fraction of the 0 dB gridline
	PlotBottom     float64 // y fraction of the 120 dB gridline
}

// JacotiLayout matches the chart geometry of Jacoti Hearing Center exports.
var JacotiLayout = ChartLayout{
	FooterFraction: DefaultFooterFraction,
	PlotLeft:       0.09,
	PlotRight:      0.97,
	PlotTop:        0.08,
	PlotBottom:     0.86,
}

// Calibration builds the layout's anchor set for a concrete image size: one
// x anchor per standard frequency and one y anchor per 20 dB gridline.
func (l ChartLayout) Calibration(bounds image.Rectangle) CalibrationReference {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	left := bounds.Min.X + int(math.Round(l.PlotLeft*w))
	right := bounds.Min.X + int(math.Round(l.PlotRight*w))
	top := bounds.Min.Y + int(math.Round(l.PlotTop*h))
	bottom := bounds.Min.Y + int(math.Round(l.PlotBottom*h))

	logMin := math.Log10(float64(StandardFrequencies[0]))
	logMax := math.Log10(float64(StandardFrequencies[len(StandardFrequencies)-1]))

	freqAnchors := make([]FrequencyAnchor, len(StandardFrequencies))
	for i, f := range StandardFrequencies {
		t := (math.Log10(float64(f)) - logMin) / (logMax - logMin)
		freqAnchors[i] = FrequencyAnchor{
			PixelX:      left + int(math.Round(t*float64(right-left))),
			FrequencyHz: float64(f),
		}
	}

	var dbAnchors []ThresholdAnchor
	for db := 0.0; db <= MaxValidDB; db += 20 {
		t := db / MaxValidDB
		dbAnchors = append(dbAnchors, ThresholdAnchor{
			PixelY:      top + int(math.Round(t*float64(bottom-top))),
			ThresholdDB: db,
		})
	}

	return CalibrationReference{FrequencyAnchors: freqAnchors, ThresholdAnchors: dbAnchors}
}
