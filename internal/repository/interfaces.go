package repository

import (
	"context"

	"github.com/google/uuid"

	"otogram/pkg/models"
)

// HearingTestRepository defines the interface for hearing test data operations
type HearingTestRepository interface {
	Create(ctx context.Context, test *models.HearingTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.HearingTest, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]*models.HearingTest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	StoreResults(ctx context.Context, results *models.HearingTestResults) error
	GetResults(ctx context.Context, testID uuid.UUID) (*models.HearingTestResults, error)
}
