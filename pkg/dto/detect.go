package dto

// DetectTextRequest is the JSON body for synchronous text analysis.
type DetectTextRequest struct {
	Text      string `json:"text" binding:"required"`
	SurfaceID string `json:"surface_id,omitempty"`
}

// DetectionResponse is the normalized result returned by the
// synchronous detection endpoint.
type DetectionResponse struct {
	MediaType         string   `json:"media_type"`
	Prediction        string   `json:"prediction"`
	ConfidencePercent float64  `json:"confidence_percent"`
	ModelLabel        string   `json:"model_label,omitempty"`
	RawScore          *float64 `json:"raw_score,omitempty"`
	FramesAnalyzed    int      `json:"frames_analyzed,omitempty"`
	ProcessingTimeMs  float64  `json:"processing_time_ms,omitempty"`
	RealProbability   *float64 `json:"real_probability,omitempty"`
	FakeProbability   *float64 `json:"fake_probability,omitempty"`
}

// SubmitAnalysisResponse acknowledges an asynchronous submission.
type SubmitAnalysisResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
