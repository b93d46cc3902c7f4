package detect

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaText  MediaType = "text"
)

// Valid reports whether mt is one of the four supported media types.
func (mt MediaType) Valid() bool {
	switch mt {
	case MediaImage, MediaVideo, MediaAudio, MediaText:
		return true
	}
	return false
}

type Prediction string

const (
	PredictionReal        Prediction = "REAL"
	PredictionFake        Prediction = "FAKE"
	PredictionAIGenerated Prediction = "AI_GENERATED"
	PredictionHuman       Prediction = "HUMAN"
)

// Options carries per-type tuning parameters. Zero values are replaced
// with backend defaults during validation.
type Options struct {
	// NumFrames is the number of frames the backend samples from a video.
	NumFrames int `json:"num_frames,omitempty"`
	// ModelVariant selects the backend model: "ed" or "vae".
	ModelVariant string `json:"model_variant,omitempty"`
}

// Request describes one analysis to run against the inference backend.
// Payload holds the file bytes for binary media; Text holds the UTF-8
// content for MediaText.
type Request struct {
	MediaType MediaType
	Filename  string
	Payload   []byte
	Text      string
	Options   Options
}

// Aux carries type-specific extras that survive normalization.
type Aux struct {
	FramesAnalyzed   int      `json:"frames_analyzed,omitempty"`
	ProcessingTimeMs float64  `json:"processing_time_ms,omitempty"`
	RealProbability  *float64 `json:"real_probability,omitempty"`
	FakeProbability  *float64 `json:"fake_probability,omitempty"`
}

// Result is the uniform outcome shape shared by all media types.
// ConfidencePercent is confidence in Prediction, never the raw fake
// probability: a genuine video with a 0.1 fake score reports 90, not 10.
type Result struct {
	MediaType         MediaType  `json:"media_type"`
	Prediction        Prediction `json:"prediction"`
	ConfidencePercent float64    `json:"confidence_percent"`
	ModelLabel        string     `json:"model_label,omitempty"`
	RawScore          *float64   `json:"raw_score,omitempty"`
	Aux               Aux        `json:"aux,omitempty"`
}

// Raw backend payloads, one shape per endpoint. Pointer fields mark the
// pieces whose absence makes the payload malformed.

type videoResponse struct {
	IsFake     *bool         `json:"is_fake"`
	Confidence float64       `json:"confidence"` // 0-100
	Metadata   videoMetadata `json:"metadata"`
}

type videoMetadata struct {
	RawScore         *float64 `json:"raw_score"` // 0-1
	FramesAnalyzed   int      `json:"frames_analyzed"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	ModelVariant     string   `json:"model_variant"`
}

type imageResponse struct {
	IsFake  *bool         `json:"is_fake"`
	Results *imageResults `json:"results"`
	Model   string        `json:"model"`
}

type imageResults struct {
	ConfidencePercentage float64 `json:"confidence_percentage"`
	Probabilities        struct {
		Real float64 `json:"real"`
		Fake float64 `json:"fake"`
	} `json:"probabilities"`
}

type audioResponse struct {
	Results *audioResults `json:"results"`
}

type audioResults struct {
	Verdict  string  `json:"verdict"`
	Bonafide float64 `json:"bonafide"`
	Spoof    float64 `json:"spoof"`
	IsFake   *bool   `json:"is_fake"`
}

type textResponse struct {
	IsAIGenerated    *bool   `json:"is_ai_generated"`
	AIProbability    float64 `json:"ai_probability"`
	HumanProbability float64 `json:"human_probability"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// HealthStatus is the backend /health payload.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}
