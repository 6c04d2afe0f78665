package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"otogram/internal/processing"
	"otogram/internal/repository"
	"otogram/internal/storage"
	"otogram/pkg/models"
)

// MaxChartImageBytes bounds uploaded chart images at 16MB; anything larger
// is not a phone photo or screenshot of an audiogram.
const MaxChartImageBytes = 16 * 1024 * 1024

// HearingTestHandler handles hearing test HTTP requests
type HearingTestHandler struct {
	repo          repository.HearingTestRepository
	s3Service     storage.S3Service
	processingSvc processing.ProcessingService
}

// NewHearingTestHandler creates a new hearing test handler
func NewHearingTestHandler(repo repository.HearingTestRepository, s3Service storage.S3Service, processingSvc processing.ProcessingService) *HearingTestHandler {
	return &HearingTestHandler{
		repo:          repo,
		s3Service:     s3Service,
		processingSvc: processingSvc,
	}
}

// CreateTest registers a new hearing test and returns an upload URL for the
// chart image.
func (h *HearingTestHandler) CreateTest(ctx context.Context, req *models.CreateTestRequest) (*models.CreateTestResponse, error) {
	log.Info().Int64("file_size", req.Body.FileSize).Str("session_id", req.Body.SessionID).Msg("Creating new hearing test")

	if req.Body.FileSize < 1000 {
		return nil, huma.Error400BadRequest("Image too small. Please upload a full chart screenshot or photo.", nil)
	}
	if req.Body.FileSize > MaxChartImageBytes {
		return nil, huma.Error400BadRequest("Image too large. Please upload an image under 16MB.", nil)
	}

	testID := uuid.New()
	chartKey := fmt.Sprintf("charts/%s%s", testID, extensionFor(req.Body.MimeType))

	uploadURL, err := h.s3Service.GenerateUploadURL(ctx, chartKey, req.Body.MimeType)
	if err != nil {
		if strings.Contains(err.Error(), "invalid content type") {
			return nil, huma.Error400BadRequest("Image format not supported. Please upload a JPEG or PNG.", err)
		}
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}

	test := &models.HearingTest{
		ID:         testID.String(),
		SessionID:  req.Body.SessionID,
		Status:     "pending",
		Progress:   0,
		ImageS3Key: &chartKey,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.repo.Create(ctx, test); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create hearing test", err)
	}
	log.Info().Str("test_id", test.ID).Str("chart_key", chartKey).Msg("Hearing test created")

	return &models.CreateTestResponse{
		Body: models.CreateTestResponseBody{
			ID:        test.ID,
			UploadURL: uploadURL,
			ExpiresIn: int((15 * time.Minute).Seconds()),
		},
	}, nil
}

// GetTestStatus returns the current status of a hearing test
func (h *HearingTestHandler) GetTestStatus(ctx context.Context, req *models.GetTestStatusRequest) (*models.GetTestStatusResponse, error) {
	testID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid hearing test ID", err)
	}

	test, err := h.repo.GetByID(ctx, testID)
	if err != nil {
		return nil, huma.Error404NotFound("Hearing test not found", err)
	}

	message := h.generateStatusMessage(test.Status, test.Progress)

	var resultsID *string
	if test.Status == "completed" {
		results, err := h.repo.GetResults(ctx, testID)
		if err == nil && results != nil {
			resultsID = &results.ID
		}
	}

	return &models.GetTestStatusResponse{
		Body: models.GetTestStatusResponseBody{
			ID:        test.ID,
			Status:    test.Status,
			Progress:  test.Progress,
			Message:   message,
			ResultsID: resultsID,
		},
	}, nil
}

// GetTestResults returns the extraction results for a completed test
func (h *HearingTestHandler) GetTestResults(ctx context.Context, req *models.GetTestResultsRequest) (*models.GetTestResultsResponse, error) {
	testID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid hearing test ID", err)
	}

	test, err := h.repo.GetByID(ctx, testID)
	if err != nil {
		return nil, huma.Error404NotFound("Hearing test not found", err)
	}

	if test.Status != "completed" {
		return nil, huma.Error409Conflict("Extraction not yet completed",
			fmt.Errorf("hearing test status is %s", test.Status))
	}

	results, err := h.repo.GetResults(ctx, testID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get results", err)
	}

	return &models.GetTestResultsResponse{
		Body: models.GetTestResultsResponseBody{
			ID:          results.ID,
			LeftEar:     results.LeftEar,
			RightEar:    results.RightEar,
			Metadata:    results.Metadata,
			Confidence:  results.Confidence,
			NeedsReview: results.NeedsReview,
			CreatedAt:   results.CreatedAt,
		},
	}, nil
}

// ListTests returns a session's hearing tests, newest first
func (h *HearingTestHandler) ListTests(ctx context.Context, req *models.ListTestsRequest) (*models.ListTestsResponse, error) {
	tests, err := h.repo.GetBySessionID(ctx, req.SessionID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list hearing tests", err)
	}

	resp := &models.ListTestsResponse{}
	resp.Body.Tests = make([]models.HearingTest, 0, len(tests))
	for _, t := range tests {
		resp.Body.Tests = append(resp.Body.Tests, *t)
	}
	return resp, nil
}

// StartProcessing starts extraction for an uploaded chart
func (h *HearingTestHandler) StartProcessing(ctx context.Context, req *models.StartProcessingRequest) (*models.StartProcessingResponse, error) {
	testID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid hearing test ID", err)
	}

	_, err = h.repo.GetByID(ctx, testID)
	if err != nil {
		return nil, huma.Error404NotFound("Hearing test not found", err)
	}

	log.Info().Str("test_id", testID.String()).Msg("Starting background extraction")
	go func() {
		if err := h.processingSvc.ProcessTest(context.Background(), testID); err != nil {
			h.repo.UpdateError(context.Background(), testID, fmt.Sprintf("Processing failed: %v", err))
		}
	}()

	return &models.StartProcessingResponse{
		Body: struct {
			Message string `json:"message" doc:"Confirmation message"`
		}{
			Message: "Extraction started successfully",
		},
	}, nil
}

// generateStatusMessage creates a human-readable status message
func (h *HearingTestHandler) generateStatusMessage(status string, progress int) string {
	switch status {
	case "pending":
		return "Chart queued for extraction..."
	case "processing":
		if progress < 25 {
			return "Starting extraction..."
		} else if progress < 50 {
			return "Downloading chart image..."
		} else if progress < 75 {
			return "Reading markers and footer..."
		} else {
			return "Finalizing measurements..."
		}
	case "completed":
		return "Extraction complete!"
	case "failed":
		return "Extraction failed. Please try another image."
	default:
		return "Unknown status"
	}
}

// extensionFor maps an accepted MIME type to a file extension.
func extensionFor(mimeType string) string {
	if mimeType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
