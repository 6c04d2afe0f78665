package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otogram/pkg/models"
)

// stubRecognizer returns canned OCR output without touching Tesseract.
type stubRecognizer struct {
	text string
	err  error
}

func (s *stubRecognizer) RecognizeText(_ context.Context, _ image.Image) (string, error) {
	return s.text, s.err
}

// renderChart draws a synthetic Jacoti-layout chart with one marker per
// given (frequency, dB) pair and ear, encoded as PNG.
func renderChart(t *testing.T, right, left []models.Measurement) []byte {
	t.Helper()

	img := whiteCanvas(800, 600)
	ref := JacotiLayout.Calibration(img.Bounds())
	for _, m := range right {
		x, y := ref.PixelFor(float64(m.FrequencyHz), m.ThresholdDB)
		drawSquare(img, x, y, 4, markerRed)
	}
	for _, m := range left {
		x, y := ref.PixelFor(float64(m.FrequencyHz), m.ThresholdDB)
		drawSquare(img, x, y, 4, markerBlue)
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseSingleEarChart(t *testing.T) {
	markers := earAt(StandardFrequencies, 40)
	chart := renderChart(t, markers, nil)

	pipeline := New(&stubRecognizer{text: "Made with Jacoti Hearing Center - 2024-12-17 12:24"}, Config{})
	result, err := pipeline.Parse(context.Background(), chart)

	require.NoError(t, err)
	assert.Empty(t, result.LeftEar)
	require.Len(t, result.RightEar, len(StandardFrequencies))
	for i, m := range result.RightEar {
		assert.Equal(t, StandardFrequencies[i], m.FrequencyHz)
		assert.InDelta(t, 40, m.ThresholdDB, 1.0)
	}
	assert.Less(t, result.Confidence, 1.0)
	assert.InDelta(t, 0.75, result.Confidence, 0.005)
}

func TestParseFullChart(t *testing.T) {
	right := earAt(StandardFrequencies, 30)
	left := earAt(StandardFrequencies, 60)
	chart := renderChart(t, right, left)

	pipeline := New(&stubRecognizer{text: "Made with Jacoti Hearing Center - 2024-12-17 12:24"}, Config{})
	result, err := pipeline.Parse(context.Background(), chart)

	require.NoError(t, err)
	require.Len(t, result.RightEar, 9)
	require.Len(t, result.LeftEar, 9)
	for i := range StandardFrequencies {
		assert.InDelta(t, 30, result.RightEar[i].ThresholdDB, 1.0)
		assert.InDelta(t, 60, result.LeftEar[i].ThresholdDB, 1.0)
	}
	assert.Equal(t, 1.0, result.Confidence)

	require.NotNil(t, result.Metadata.Device)
	assert.Equal(t, "Jacoti Hearing Center", *result.Metadata.Device)
	require.NotNil(t, result.Metadata.TestDate)
	assert.Equal(t, "2024-12-17", *result.Metadata.TestDate)
	require.NotNil(t, result.Metadata.Time)
	assert.Equal(t, "12:24", *result.Metadata.Time)
}

func TestParseRejectsCorruptImage(t *testing.T) {
	pipeline := New(&stubRecognizer{}, Config{})

	result, err := pipeline.Parse(context.Background(), []byte("not an image at all"))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestParseContinuesWhenOCRFails(t *testing.T) {
	chart := renderChart(t, earAt(StandardFrequencies, 50), nil)

	pipeline := New(&stubRecognizer{err: assert.AnError}, Config{})
	result, err := pipeline.Parse(context.Background(), chart)

	require.NoError(t, err)
	assert.Len(t, result.RightEar, 9)
	assert.Nil(t, result.Metadata.Device)
	assert.Nil(t, result.Metadata.TestDate)
}

// ctxRecognizer mirrors the real recognizer's habit of honoring the
// caller's deadline before doing any work.
type ctxRecognizer struct{}

func (ctxRecognizer) RecognizeText(ctx context.Context, _ image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "recognized", nil
}

func TestParseExpiredContextDegradesMetadata(t *testing.T) {
	chart := renderChart(t, earAt(StandardFrequencies, 45), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := New(ctxRecognizer{}, Config{})
	result, err := pipeline.Parse(ctx, chart)

	require.NoError(t, err)
	assert.Len(t, result.RightEar, 9)
	assert.Nil(t, result.Metadata.Device)
	assert.Nil(t, result.Metadata.TestDate)
	assert.Nil(t, result.Metadata.Time)
}

func TestParseWithoutRecognizer(t *testing.T) {
	chart := renderChart(t, earAt([]int{1000}, 20), nil)

	pipeline := New(nil, Config{})
	result, err := pipeline.Parse(context.Background(), chart)

	require.NoError(t, err)
	require.Len(t, result.RightEar, 1)
	assert.Equal(t, 1000, result.RightEar[0].FrequencyHz)
}

func TestParseDeterministic(t *testing.T) {
	chart := renderChart(t, earAt(StandardFrequencies, 35), earAt([]int{500, 1000, 2000}, 70))
	pipeline := New(&stubRecognizer{text: "Made with Jacoti Hearing Center - 2024-12-17 12:24"}, Config{})

	first, err := pipeline.Parse(context.Background(), chart)
	require.NoError(t, err)
	second, err := pipeline.Parse(context.Background(), chart)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseIgnoresMarkersBelowPlot(t *testing.T) {
	// A colored blob over the footer area belongs to no measurement; the
	// chart crop removes it before detection runs.
	img := whiteCanvas(800, 600)
	drawSquare(img, 400, 580, 4, markerRed)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	pipeline := New(nil, Config{})
	result, err := pipeline.Parse(context.Background(), buf.Bytes())

	require.NoError(t, err)
	assert.Empty(t, result.RightEar)
}
