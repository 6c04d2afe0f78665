package ocr

import (
	"image"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	colorful "github.com/lucasb-eyer/go-colorful"

	"otogram/pkg/models"
)

// HueRange is an inclusive hue interval in degrees (0-360).
type HueRange struct {
	Lo float64
	Hi float64
}

// ColorClass describes the ink color of one ear's markers. A single detector
// parameterized by a class replaces per-ear code paths.
type ColorClass struct {
	Ear           models.Ear
	Hues          []HueRange
	MinSaturation float64
	MinValue      float64
}

// Red ink wraps around the hue circle, so the right ear needs two ranges.
var (
	RightEarClass = ColorClass{
		Ear:           models.EarRight,
		Hues:          []HueRange{{Lo: 0, Hi: 20}, {Lo: 340, Hi: 360}},
		MinSaturation: 0.39,
		MinValue:      0.39,
	}
	LeftEarClass = ColorClass{
		Ear:           models.EarLeft,
		Hues:          []HueRange{{Lo: 200, Hi: 260}},
		MinSaturation: 0.39,
		MinValue:      0.39,
	}
)

// Marker is the pixel centroid of one detected ink mark.
type Marker struct {
	X   int
	Y   int
	Ear models.Ear
}

// DetectorOptions tunes marker detection.
type DetectorOptions struct {
	// MinArea discards connected components smaller than this many pixels.
	MinArea int
	// MorphRadius is the radius of the morphological open/close cleanup.
	MorphRadius float64
}

// DefaultDetectorOptions returns the tuning used for Jacoti charts.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{MinArea: 6, MorphRadius: 1}
}

// DetectMarkers finds all ink marks of one color class in the chart region.
// The returned list is ordered by ascending y then x, so identical input
// always yields an identical marker list.
func DetectMarkers(img image.Image, class ColorClass, opts DetectorOptions) []Marker {
	mask := colorMask(img, class)
	mask = cleanupMask(mask, opts.MorphRadius)

	markers := make([]Marker, 0)
	for _, c := range connectedComponents(mask) {
		if c.area < opts.MinArea {
			continue
		}
		markers = append(markers, Marker{
			X:   c.sumX / c.area,
			Y:   c.sumY / c.area,
			Ear: class.Ear,
		})
	}

	sort.Slice(markers, func(i, j int) bool {
		if markers[i].Y != markers[j].Y {
			return markers[i].Y < markers[j].Y
		}
		return markers[i].X < markers[j].X
	})
	return markers
}

// colorMask builds a binary mask of pixels matching the class's HSV range.
func colorMask(img image.Image, class ColorClass) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := colorful.Color{
				R: float64(r>>8) / 255.0,
				G: float64(g>>8) / 255.0,
				B: float64(b>>8) / 255.0,
			}
			h, s, v := c.Hsv()
			if s < class.MinSaturation || v < class.MinValue {
				continue
			}
			for _, hr := range class.Hues {
				if h >= hr.Lo && h <= hr.Hi {
					mask.Pix[y*mask.Stride+x] = 255
					break
				}
			}
		}
	}
	return mask
}

// cleanupMask applies morphological opening then closing: opening removes
// isolated noise pixels, closing merges fragmented ink strokes.
func cleanupMask(mask *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return mask
	}
	opened := effect.Dilate(effect.Erode(mask, radius), radius)
	closed := effect.Erode(effect.Dilate(opened, radius), radius)
	return binarize(closed)
}

// binarize thresholds an RGBA morphology result back into a binary mask.
func binarize(img *image.RGBA) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[y*img.Stride+x*4] > 127 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

type component struct {
	area int
	sumX int
	sumY int
}

// connectedComponents labels 8-connected white regions of a binary mask
// using an iterative flood fill. Scanning is row-major, so component order
// is deterministic.
func connectedComponents(mask *image.Gray) []component {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	visited := make([]bool, w*h)
	var comps []component

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Pix[y*mask.Stride+x] == 0 || visited[y*w+x] {
				continue
			}

			var c component
			stack := []image.Point{{X: x, Y: y}}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
					continue
				}
				if visited[p.Y*w+p.X] || mask.Pix[p.Y*mask.Stride+p.X] == 0 {
					continue
				}
				visited[p.Y*w+p.X] = true
				c.area++
				c.sumX += p.X
				c.sumY += p.Y

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
					}
				}
			}
			comps = append(comps, c)
		}
	}
	return comps
}
