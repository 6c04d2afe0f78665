package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFooterCropsBottomBand(t *testing.T) {
	img := whiteCanvas(200, 100)

	footer, err := ExtractFooter(img, 0.10)

	require.NoError(t, err)
	assert.Equal(t, 200, footer.Rect.Dx())
	assert.Equal(t, 10, footer.Rect.Dy())
}

func TestExtractFooterBinarizesDarkTextOnLight(t *testing.T) {
	img := whiteCanvas(200, 100)
	// "Text" in the footer band.
	drawSquare(img, 100, 95, 2, color.Black)

	footer, err := ExtractFooter(img, 0.10)
	require.NoError(t, err)

	// Footer coordinates are re-anchored at the origin; y 95 maps to 5.
	assert.Equal(t, uint8(0), footer.GrayAt(100, 5).Y)
	assert.Equal(t, uint8(255), footer.GrayAt(20, 5).Y)
}

func TestExtractFooterRejectsDegenerateImages(t *testing.T) {
	_, err := ExtractFooter(image.NewRGBA(image.Rect(0, 0, 0, 0)), 0.10)

	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestExtractFooterDefaultsBadFractions(t *testing.T) {
	img := whiteCanvas(100, 100)

	footer, err := ExtractFooter(img, -0.5)

	require.NoError(t, err)
	assert.Equal(t, 10, footer.Rect.Dy())
}

func TestChartRegionExcludesFooter(t *testing.T) {
	img := whiteCanvas(200, 100)

	chart, err := ChartRegion(img, 0.10)

	require.NoError(t, err)
	assert.Equal(t, 200, chart.Bounds().Dx())
	assert.Equal(t, 90, chart.Bounds().Dy())
}

func TestChartRegionRejectsFooterOnlyImages(t *testing.T) {
	img := whiteCanvas(100, 100)

	_, err := ChartRegion(img, 1.0)

	assert.ErrorIs(t, err, ErrInvalidImage)
}
