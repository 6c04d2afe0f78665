package processing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"otogram/internal/ocr"
	"otogram/internal/repository"
	"otogram/internal/storage"
	"otogram/pkg/models"
)

// DefaultReviewThreshold is the confidence below which results are flagged
// for manual review.
const DefaultReviewThreshold = 0.8

// ChartParser is the extraction pipeline as the processing service sees it.
type ChartParser interface {
	Parse(ctx context.Context, imageBytes []byte) (*models.ParseResult, error)
}

type ProcessingService interface {
	ProcessTest(ctx context.Context, testID uuid.UUID) error
}

type processingService struct {
	s3              storage.S3Service
	repository      repository.HearingTestRepository
	parser          ChartParser
	reviewThreshold float64
}

func NewProcessingService(s3Service storage.S3Service, repo repository.HearingTestRepository, parser ChartParser, reviewThreshold float64) ProcessingService {
	if reviewThreshold <= 0 || reviewThreshold > 1 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &processingService{
		s3:              s3Service,
		repository:      repo,
		parser:          parser,
		reviewThreshold: reviewThreshold,
	}
}

// ProcessTest runs the full extraction for one uploaded chart. Extraction
// failures mark the test failed in the database and return nil; only
// infrastructure errors (database unavailable) propagate to the caller.
func (s *processingService) ProcessTest(ctx context.Context, testID uuid.UUID) error {
	// Step 1: Update to processing status
	if err := s.repository.UpdateStatus(ctx, testID, "processing", 10); err != nil {
		return err
	}

	// Step 2: Get test details
	test, err := s.repository.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if test.ImageS3Key == nil {
		s.repository.UpdateError(ctx, testID, "No chart image was uploaded")
		return nil
	}

	// Step 3: Download the chart image
	if err := s.repository.UpdateStatus(ctx, testID, "processing", 25); err != nil {
		return err
	}
	imageData, err := s.s3.DownloadFile(ctx, *test.ImageS3Key)
	if err != nil {
		log.Error().Err(err).Str("test_id", test.ID).Msg("chart download failed")
		s.repository.UpdateError(ctx, testID, "Failed to download chart image")
		return nil // Don't return error, status is updated to failed
	}

	// Step 4: Run the extraction pipeline
	if err := s.repository.UpdateStatus(ctx, testID, "processing", 50); err != nil {
		return err
	}
	parsed, err := s.parser.Parse(ctx, imageData)
	if err != nil {
		log.Warn().Err(err).Str("test_id", test.ID).Msg("chart extraction failed")
		if errors.Is(err, ocr.ErrInvalidImage) {
			s.repository.UpdateError(ctx, testID, "The uploaded file is not a readable audiogram image")
		} else {
			s.repository.UpdateError(ctx, testID, "Chart extraction failed")
		}
		return nil
	}

	// Step 5: Store results
	if err := s.repository.UpdateStatus(ctx, testID, "processing", 90); err != nil {
		return err
	}
	results := &models.HearingTestResults{
		ID:          uuid.New().String(),
		TestID:      test.ID,
		LeftEar:     parsed.LeftEar,
		RightEar:    parsed.RightEar,
		Metadata:    parsed.Metadata,
		Confidence:  parsed.Confidence,
		NeedsReview: parsed.Confidence < s.reviewThreshold,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repository.StoreResults(ctx, results); err != nil {
		return err
	}

	// Step 6: Mark complete
	if err := s.repository.UpdateStatus(ctx, testID, "completed", 100); err != nil {
		return err
	}

	log.Info().
		Str("test_id", test.ID).
		Float64("confidence", parsed.Confidence).
		Bool("needs_review", results.NeedsReview).
		Int("left_measurements", len(parsed.LeftEar)).
		Int("right_measurements", len(parsed.RightEar)).
		Msg("hearing test processed")

	return nil
}
