package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// CreateTestRequest represents a request to register a new hearing test upload
type CreateTestRequest struct {
	Body struct {
		SessionID string `json:"session_id" minLength:"10" maxLength:"50" required:"true" doc:"Client session identifier"`
		FileSize  int64  `json:"file_size" minimum:"1000" maximum:"16777216" required:"true" doc:"Chart image size in bytes"`
		MimeType  string `json:"mime_type" enum:"image/jpeg,image/png" required:"true" doc:"Chart image MIME type"`
	}
}

// CreateTestResponseBody is the body of the create test response
type CreateTestResponseBody struct {
	ID        string `json:"id" doc:"Hearing test unique identifier"`
	UploadURL string `json:"upload_url" doc:"Pre-signed URL for the chart image upload"`
	ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateTestResponse represents the response from registering a test
type CreateTestResponse struct {
	Body CreateTestResponseBody
}

// GetTestStatusRequest represents a request to get test status
type GetTestStatusRequest struct {
	ID string `path:"id" doc:"Hearing test ID"`
}

// GetTestStatusResponseBody is the body of the status response
type GetTestStatusResponseBody struct {
	ID        string  `json:"id" doc:"Hearing test ID"`
	Status    string  `json:"status" enum:"pending,processing,completed,failed" doc:"Processing status"`
	Progress  int     `json:"progress" minimum:"0" maximum:"100" doc:"Processing progress percentage"`
	Message   string  `json:"message,omitempty" doc:"Human-readable status message"`
	ResultsID *string `json:"results_id,omitempty" doc:"Results ID once extraction completes"`
}

// GetTestStatusResponse represents the current status of a hearing test
type GetTestStatusResponse struct {
	Body GetTestStatusResponseBody
}

// GetTestResultsRequest represents a request to get extraction results
type GetTestResultsRequest struct {
	ID string `path:"id" doc:"Hearing test ID"`
}

// GetTestResultsResponseBody is the body of the results response
type GetTestResultsResponseBody struct {
	ID          string        `json:"id" doc:"Results ID"`
	LeftEar     []Measurement `json:"left_ear" doc:"Left ear measurements"`
	RightEar    []Measurement `json:"right_ear" doc:"Right ear measurements"`
	Metadata    Metadata      `json:"metadata" doc:"Parsed chart metadata"`
	Confidence  float64       `json:"confidence" doc:"Extraction confidence score (0-1)"`
	NeedsReview bool          `json:"needs_review" doc:"True when confidence is below the review threshold"`
	CreatedAt   time.Time     `json:"created_at" doc:"Extraction timestamp"`
}

// GetTestResultsResponse represents the complete extraction results
type GetTestResultsResponse struct {
	Body GetTestResultsResponseBody
}

// ListTestsRequest represents a request to list a session's hearing tests
type ListTestsRequest struct {
	SessionID string `query:"session_id" required:"true" doc:"Client session identifier"`
}

// ListTestsResponse represents the list of a session's hearing tests
type ListTestsResponse struct {
	Body struct {
		Tests []HearingTest `json:"tests" doc:"Hearing tests, newest first"`
	}
}

// StartProcessingRequest represents a request to start extraction for an uploaded chart
type StartProcessingRequest struct {
	ID string `path:"id" doc:"Hearing test ID"`
}

// StartProcessingResponse represents the response from starting extraction
type StartProcessingResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}
