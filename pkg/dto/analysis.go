package dto

import "github.com/google/uuid"

type AnalysisResponse struct {
	ID                uuid.UUID `json:"id"`
	MediaType         string    `json:"media_type"`
	Filename          string    `json:"filename"`
	Status            string    `json:"status"`
	Prediction        string    `json:"prediction,omitempty"`
	ConfidencePercent *float64  `json:"confidence_percent,omitempty"`
	RawScore          *float64  `json:"raw_score,omitempty"`
	ModelLabel        string    `json:"model_label,omitempty"`
	FramesAnalyzed    int       `json:"frames_analyzed,omitempty"`
	ProcessingTimeMs  float64   `json:"processing_time_ms,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	MediaURL          string    `json:"media_url,omitempty"`
	CreatedAt         string    `json:"created_at"`
	UpdatedAt         string    `json:"updated_at"`
}

type AnalysisListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Total    int                `json:"total"`
}

type AnalysisQuery struct {
	MediaType string `form:"media_type"`
	Status    string `form:"status"`
	From      string `form:"from"`
	To        string `form:"to"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

type SummaryEntry struct {
	MediaType  string `json:"media_type"`
	Prediction string `json:"prediction"`
	Count      int    `json:"count"`
}

type SummaryResponse struct {
	Entries []SummaryEntry `json:"entries"`
	Total   int            `json:"total"`
}
