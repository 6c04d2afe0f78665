package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"otogram/internal/repository"
	"otogram/pkg/models"
)

// PostgresHearingTestRepository implements HearingTestRepository for PostgreSQL
type PostgresHearingTestRepository struct {
	db *sql.DB
}

// NewPostgresHearingTestRepository creates a new PostgreSQL hearing test repository
func NewPostgresHearingTestRepository(db *sql.DB) repository.HearingTestRepository {
	return &PostgresHearingTestRepository{db: db}
}

// Create inserts a new hearing test record
func (r *PostgresHearingTestRepository) Create(ctx context.Context, test *models.HearingTest) error {
	query := `
		INSERT INTO hearing_tests (id, session_id, status, progress, image_s3_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		test.ID,
		test.SessionID,
		test.Status,
		test.Progress,
		test.ImageS3Key,
		test.CreatedAt,
		test.UpdatedAt)

	return err
}

// GetByID retrieves a hearing test by ID
func (r *PostgresHearingTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.HearingTest, error) {
	query := `
		SELECT id, session_id, status, progress, image_s3_key, error_message, created_at, updated_at, completed_at
		FROM hearing_tests
		WHERE id = $1`

	test, err := scanHearingTest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return test, nil
}

// GetBySessionID retrieves hearing tests by session ID
func (r *PostgresHearingTestRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.HearingTest, error) {
	query := `
		SELECT id, session_id, status, progress, image_s3_key, error_message, created_at, updated_at, completed_at
		FROM hearing_tests
		WHERE session_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*models.HearingTest
	for rows.Next() {
		test, err := scanHearingTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHearingTest(row rowScanner) (*models.HearingTest, error) {
	var test models.HearingTest
	var imageS3Key, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&test.ID,
		&test.SessionID,
		&test.Status,
		&test.Progress,
		&imageS3Key,
		&errorMsg,
		&test.CreatedAt,
		&test.UpdatedAt,
		&completedAt)

	if err != nil {
		return nil, err
	}

	if imageS3Key.Valid {
		test.ImageS3Key = &imageS3Key.String
	}
	if errorMsg.Valid {
		test.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		test.CompletedAt = &completedAt.Time
	}

	return &test, nil
}

// UpdateStatus updates the status and progress of a hearing test
func (r *PostgresHearingTestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE hearing_tests
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// UpdateError updates the error message for a hearing test
func (r *PostgresHearingTestRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE hearing_tests
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// StoreResults stores extraction results
func (r *PostgresHearingTestRepository) StoreResults(ctx context.Context, results *models.HearingTestResults) error {
	leftEar, err := json.Marshal(results.LeftEar)
	if err != nil {
		return fmt.Errorf("failed to marshal left ear measurements: %w", err)
	}
	rightEar, err := json.Marshal(results.RightEar)
	if err != nil {
		return fmt.Errorf("failed to marshal right ear measurements: %w", err)
	}
	metadata, err := json.Marshal(results.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO hearing_test_results (id, test_id, left_ear, right_ear, metadata, confidence, needs_review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.TestID,
		string(leftEar),
		string(rightEar),
		string(metadata),
		results.Confidence,
		results.NeedsReview,
		results.CreatedAt)

	return err
}

// GetResults retrieves extraction results for a hearing test
func (r *PostgresHearingTestRepository) GetResults(ctx context.Context, testID uuid.UUID) (*models.HearingTestResults, error) {
	query := `
		SELECT id, test_id, left_ear, right_ear, metadata, confidence, needs_review, created_at
		FROM hearing_test_results
		WHERE test_id = $1`

	var results models.HearingTestResults
	var leftEarStr, rightEarStr, metadataStr sql.NullString

	err := r.db.QueryRowContext(ctx, query, testID).Scan(
		&results.ID,
		&results.TestID,
		&leftEarStr,
		&rightEarStr,
		&metadataStr,
		&results.Confidence,
		&results.NeedsReview,
		&results.CreatedAt)

	if err != nil {
		return nil, err
	}

	if leftEarStr.Valid {
		if err := json.Unmarshal([]byte(leftEarStr.String), &results.LeftEar); err != nil {
			return nil, fmt.Errorf("failed to unmarshal left ear measurements: %w", err)
		}
	}
	if rightEarStr.Valid {
		if err := json.Unmarshal([]byte(rightEarStr.String), &results.RightEar); err != nil {
			return nil, fmt.Errorf("failed to unmarshal right ear measurements: %w", err)
		}
	}
	if metadataStr.Valid {
		if err := json.Unmarshal([]byte(metadataStr.String), &results.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &results, nil
}
