package models

import (
	"time"
)

// Ear identifies which ear a measurement belongs to. On Jacoti charts the
// right ear is plotted with red circles and the left ear with blue crosses.
type Ear string

const (
	EarLeft  Ear = "left"
	EarRight Ear = "right"
)

// Measurement is a single finalized hearing threshold: the frequency is
// snapped to one of the standard audiometric frequencies and the threshold
// has already been deduplicated.
type Measurement struct {
	FrequencyHz int     `json:"frequency_hz" doc:"Standard audiometric frequency in Hz"`
	ThresholdDB float64 `json:"threshold_db" doc:"Hearing threshold in dB HL"`
}

// Metadata holds the fields parsed from the chart footer. Every field except
// the raw text is optional; partial extraction is expected.
type Metadata struct {
	TestDate      *string `json:"test_date,omitempty" doc:"Test date in YYYY-MM-DD form"`
	Time          *string `json:"time,omitempty" doc:"Test time in HH:MM form"`
	Device        *string `json:"device,omitempty" doc:"Device or app that produced the chart"`
	Location      *string `json:"location,omitempty" doc:"Test location"`
	RawFooterText string  `json:"raw_footer_text" doc:"Unparsed footer text, kept for manual review"`
}

// ParseResult is the complete output of one pipeline invocation. It is
// created once per parsed image and never mutated afterwards.
type ParseResult struct {
	LeftEar    []Measurement `json:"left_ear" doc:"Left ear measurements, ascending frequency"`
	RightEar   []Measurement `json:"right_ear" doc:"Right ear measurements, ascending frequency"`
	Metadata   Metadata      `json:"metadata" doc:"Parsed footer metadata"`
	Confidence float64       `json:"confidence" minimum:"0" maximum:"1" doc:"Extraction confidence score"`
}

// HearingTest represents one uploaded audiogram and its processing state.
type HearingTest struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	ImageS3Key  *string    `json:"image_s3_key,omitempty"`
	ErrorMsg    *string    `json:"error_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HearingTestResults is the persisted outcome of a completed extraction.
type HearingTestResults struct {
	ID          string        `json:"id"`
	TestID      string        `json:"test_id"`
	LeftEar     []Measurement `json:"left_ear"`
	RightEar    []Measurement `json:"right_ear"`
	Metadata    Metadata      `json:"metadata"`
	Confidence  float64       `json:"confidence"`
	NeedsReview bool          `json:"needs_review"`
	CreatedAt   time.Time     `json:"created_at"`
}
