package dto

import "github.com/google/uuid"

// WSEvent is a WebSocket message for real-time analysis updates.
type WSEvent struct {
	Type       string            `json:"type"` // analysis_queued, analysis_started, analysis_completed, analysis_failed
	AnalysisID uuid.UUID         `json:"analysis_id"`
	Status     string            `json:"status,omitempty"`
	Data       *AnalysisResponse `json:"data,omitempty"`
}
