// Package ocr extracts hearing measurements from Jacoti audiogram chart
// images. A chart is split into its footer (OCR'd for test metadata) and
// plot area (scanned for colored threshold markers, which are mapped
// through the chart's axis geometry into frequency/dB pairs).
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"otogram/pkg/models"
)

// ErrInvalidImage marks input that cannot be decoded or is too small to
// carry a chart. It is the only pipeline error callers should treat as
// permanent; everything else degrades to a partial result.
var ErrInvalidImage = errors.New("invalid audiogram image")

// Stage identifies a step of the extraction pipeline, used for logging
// and progress reporting.
type Stage int

const (
	StageReceived Stage = iota
	StageRegions
	StageMetadata
	StageMarkers
	StageCalibration
	StageAggregation
	StageScoring
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageRegions:
		return "regions"
	case StageMetadata:
		return "metadata"
	case StageMarkers:
		return "markers"
	case StageCalibration:
		return "calibration"
	case StageAggregation:
		return "aggregation"
	case StageScoring:
		return "scoring"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Config tunes a Pipeline. Zero values fall back to the Jacoti defaults;
// a nil Logger disables pipeline logging.
type Config struct {
	Layout         ChartLayout
	Detector       DetectorOptions
	Classes        []ColorClass
	ExpectedPerEar int
	Logger         *zerolog.Logger
}

// Pipeline runs the full chart → measurements extraction. It is safe for
// concurrent use as long as the recognizer is.
type Pipeline struct {
	recognizer TextRecognizer
	cfg        Config
}

// New builds a Pipeline. recognizer may be nil, in which case metadata
// parsing is skipped and results carry only marker data.
func New(recognizer TextRecognizer, cfg Config) *Pipeline {
	if cfg.Layout == (ChartLayout{}) {
		cfg.Layout = JacotiLayout
	}
	if cfg.Detector == (DetectorOptions{}) {
		cfg.Detector = DefaultDetectorOptions()
	}
	if len(cfg.Classes) == 0 {
		cfg.Classes = []ColorClass{RightEarClass, LeftEarClass}
	}
	if cfg.ExpectedPerEar <= 0 {
		cfg.ExpectedPerEar = DefaultExpectedPerEar
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return &Pipeline{recognizer: recognizer, cfg: cfg}
}

// Parse extracts measurements and metadata from an encoded chart image.
// It returns ErrInvalidImage (wrapped) when the bytes are not a usable
// image; OCR failures and sparse charts still produce a result, just with
// degraded metadata or a low confidence score.
func (p *Pipeline) Parse(ctx context.Context, imageBytes []byte) (*models.ParseResult, error) {
	logger := *p.cfg.Logger

	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		logger.Warn().Err(err).Stringer("stage", StageFailed).Msg("image decode failed")
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	logger.Debug().Stringer("stage", StageReceived).
		Int("width", bounds.Dx()).Int("height", bounds.Dy()).
		Msg("decoded chart image")

	footer, err := ExtractFooter(img, p.cfg.Layout.FooterFraction)
	if err != nil {
		logger.Warn().Err(err).Stringer("stage", StageFailed).Msg("region extraction failed")
		return nil, err
	}
	chart, err := ChartRegion(img, p.cfg.Layout.FooterFraction)
	if err != nil {
		return nil, err
	}
	logger.Debug().Stringer("stage", StageRegions).Msg("split footer and plot regions")

	result := &models.ParseResult{}
	if p.recognizer != nil {
		// An expired context counts as recognition being unavailable: the
		// recognizer returns ctx.Err and metadata degrades to empty.
		text, ocrErr := p.recognizer.RecognizeText(ctx, footer)
		if ocrErr != nil {
			logger.Warn().Err(ocrErr).Stringer("stage", StageMetadata).
				Msg("footer OCR failed, continuing without metadata")
		} else {
			result.Metadata = ParseFooter(text)
			logger.Debug().Stringer("stage", StageMetadata).
				Bool("date_found", result.Metadata.TestDate != nil).
				Msg("parsed footer metadata")
		}
	}

	var markers []Marker
	for _, class := range p.cfg.Classes {
		found := DetectMarkers(chart, class, p.cfg.Detector)
		logger.Debug().Stringer("stage", StageMarkers).
			Str("ear", string(class.Ear)).Int("count", len(found)).
			Msg("detected markers")
		markers = append(markers, found...)
	}

	calibration := p.cfg.Layout.Calibration(bounds)
	points := calibration.Calibrate(markers)
	logger.Debug().Stringer("stage", StageCalibration).
		Int("points", len(points)).Msg("calibrated marker positions")

	left, right, stats := Aggregate(points)
	logger.Debug().Stringer("stage", StageAggregation).
		Int("accepted", stats.Accepted).
		Int("out_of_plot", stats.OutOfPlot).
		Int("dropped_implausible", stats.DroppedImplausible).
		Int("dropped_snap", stats.DroppedSnapDistance).
		Int("dropped_range", stats.DroppedMeasurements).
		Msg("aggregated measurements")

	result.LeftEar = left
	result.RightEar = right
	result.Confidence = Confidence(left, right, p.cfg.ExpectedPerEar)
	logger.Info().Stringer("stage", StageDone).
		Int("left", len(left)).Int("right", len(right)).
		Float64("confidence", result.Confidence).
		Msg("chart extraction complete")

	return result, nil
}
