package ocr

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// DefaultFooterFraction is the share of image height occupied by the printed
// footer line on Jacoti charts.
const DefaultFooterFraction = 0.10

const (
	// Radius of the Gaussian local mean used by the adaptive threshold.
	footerBlurRadius = 4.0
	// Bias subtracted from the local mean so faint text still binarizes white.
	footerThresholdBias = 2
)

// ExtractFooter crops the bottom band of a chart image and binarizes it for
// text recognition: grayscale, Gaussian-smoothed local mean, adaptive
// threshold, and an inversion pass when the background comes out dark.
func ExtractFooter(img image.Image, fraction float64) (*image.Gray, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidImage
	}
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultFooterFraction
	}

	footerHeight := int(float64(bounds.Dy()) * fraction)
	if footerHeight < 1 {
		footerHeight = 1
	}
	crop := imaging.Crop(img, image.Rect(bounds.Min.X, bounds.Max.Y-footerHeight, bounds.Max.X, bounds.Max.Y))

	gray := toGray(crop)
	localMean := blur.Gaussian(gray, footerBlurRadius)

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	var sum int64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(gray.Pix[y*gray.Stride+x])
			mean := int(localMean.Pix[y*localMean.Stride+x*4])
			if v > mean-footerThresholdBias {
				out.Pix[y*out.Stride+x] = 255
			}
			sum += int64(out.Pix[y*out.Stride+x])
		}
	}

	// Recognition expects dark text on a light background.
	if sum/int64(w*h) < 127 {
		for i := range out.Pix {
			out.Pix[i] = 255 - out.Pix[i]
		}
	}

	return out, nil
}

// ChartRegion returns the plot area of a chart image, excluding the footer
// band, as a standalone sub-image anchored at the origin.
func ChartRegion(img image.Image, fraction float64) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidImage
	}
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultFooterFraction
	}

	footerHeight := int(float64(bounds.Dy()) * fraction)
	if footerHeight >= bounds.Dy() {
		return nil, ErrInvalidImage
	}
	return imaging.Crop(img, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y-footerHeight)), nil
}

// toGray converts any image to 8-bit grayscale using BT.601 luminance
// weights, re-anchored at the origin.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.Pix[y*out.Stride+x] = uint8((299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000)
		}
	}
	return out
}
