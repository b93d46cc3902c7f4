package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/veridex/internal/detect"
)

type AnalysisStatus string

const (
	AnalysisStatusQueued    AnalysisStatus = "queued"
	AnalysisStatusAnalyzing AnalysisStatus = "analyzing"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// Analysis is one detection run, persisted for history.
type Analysis struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	MediaType         detect.MediaType `json:"media_type" db:"media_type"`
	Filename          string           `json:"filename" db:"filename"`
	ObjectKey         string           `json:"object_key" db:"object_key"` // MinIO key of the uploaded media
	Status            AnalysisStatus   `json:"status" db:"status"`
	Prediction        string           `json:"prediction,omitempty" db:"prediction"`
	ConfidencePercent *float64         `json:"confidence_percent,omitempty" db:"confidence_percent"`
	RawScore          *float64         `json:"raw_score,omitempty" db:"raw_score"`
	ModelLabel        string           `json:"model_label,omitempty" db:"model_label"`
	FramesAnalyzed    int              `json:"frames_analyzed,omitempty" db:"frames_analyzed"`
	ProcessingTimeMs  float64          `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	ErrorMessage      string           `json:"error_message,omitempty" db:"error_message"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// AnalysisTask is the message published to NATS for worker processing.
type AnalysisTask struct {
	AnalysisID uuid.UUID        `json:"analysis_id"`
	MediaType  detect.MediaType `json:"media_type"`
	Filename   string           `json:"filename"`
	ObjectKey  string           `json:"object_ref,omitempty"` // MinIO object key, empty for text
	Text       string           `json:"text,omitempty"`
	Options    detect.Options   `json:"options"`
	QueuedAt   time.Time        `json:"queued_at"`
}

// CancelCommand is the control message published when a queued or
// running analysis is cancelled.
type CancelCommand struct {
	Action     string `json:"action"` // cancel
	AnalysisID string `json:"analysis_id"`
}

// ResultEvent is the outcome a worker publishes for one task.
type ResultEvent struct {
	AnalysisID        uuid.UUID        `json:"analysis_id"`
	MediaType         detect.MediaType `json:"media_type"`
	Status            AnalysisStatus   `json:"status"` // completed or failed
	Prediction        string           `json:"prediction,omitempty"`
	ConfidencePercent *float64         `json:"confidence_percent,omitempty"`
	RawScore          *float64         `json:"raw_score,omitempty"`
	ModelLabel        string           `json:"model_label,omitempty"`
	FramesAnalyzed    int              `json:"frames_analyzed,omitempty"`
	ProcessingTimeMs  float64          `json:"processing_time_ms,omitempty"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	FinishedAt        time.Time        `json:"finished_at"`
}
