package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestLabelConfidence_Inversion(t *testing.T) {
	tests := []struct {
		description string
		rawScore    float64
		isFake      bool
		want        float64
	}{
		{"fake verdict keeps raw score", 0.87, true, 87},
		{"real verdict inverts raw score", 0.10, false, 90},
		{"real verdict with high fake score", 0.87, false, 13},
		{"fake verdict with low fake score", 0.10, true, 10},
		{"boundary zero fake", 0, true, 0},
		{"boundary zero real", 0, false, 100},
		{"boundary one fake", 1, true, 100},
		{"boundary one real", 1, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.InDelta(t, tt.want, labelConfidence(tt.rawScore, tt.isFake), 1e-9)
		})
	}
}

func TestLabelConfidence_SweepsStayInRange(t *testing.T) {
	for i := 0; i <= 100; i++ {
		raw := float64(i) / 100
		forFake := labelConfidence(raw, true)
		forReal := labelConfidence(raw, false)

		assert.InDelta(t, raw*100, forFake, 1e-9)
		assert.InDelta(t, (1-raw)*100, forReal, 1e-9)
		assert.GreaterOrEqual(t, forFake, 0.0)
		assert.LessOrEqual(t, forFake, 100.0)
		// The two readings answer the same question for opposite labels.
		assert.InDelta(t, 100, forFake+forReal, 1e-9)
	}
}

func TestLabelConfidence_ClampsMalformedInput(t *testing.T) {
	assert.Equal(t, 100.0, labelConfidence(3.7, true))
	assert.Equal(t, 0.0, labelConfidence(-0.5, true))
	assert.Equal(t, 0.0, labelConfidence(3.7, false))
	assert.Equal(t, 100.0, labelConfidence(-0.5, false))
}

func TestNormalizeVideo(t *testing.T) {
	req := require.New(t)

	resp := &videoResponse{IsFake: boolPtr(true), Confidence: 87}
	resp.Metadata.RawScore = f64Ptr(0.87)
	resp.Metadata.FramesAnalyzed = 15
	resp.Metadata.ProcessingTimeMs = 4210.5
	resp.Metadata.ModelVariant = "ed"

	res, err := normalizeVideo(resp)
	req.NoError(err)
	req.Equal(PredictionFake, res.Prediction)
	req.InDelta(87, res.ConfidencePercent, 1e-9)
	req.Equal("ed", res.ModelLabel)
	req.NotNil(res.RawScore)
	req.InDelta(0.87, *res.RawScore, 1e-9)
	req.Equal(15, res.Aux.FramesAnalyzed)
	req.InDelta(4210.5, res.Aux.ProcessingTimeMs, 1e-9)
}

func TestNormalizeVideo_RealVerdictInverts(t *testing.T) {
	resp := &videoResponse{IsFake: boolPtr(false), Confidence: 10}
	resp.Metadata.RawScore = f64Ptr(0.10)

	res, err := normalizeVideo(resp)
	require.NoError(t, err)
	// A 10% fake probability on an authentic video must read as 90%
	// confidence REAL, never "10% confidence: REAL".
	assert.Equal(t, PredictionReal, res.Prediction)
	assert.InDelta(t, 90, res.ConfidencePercent, 1e-9)
}

func TestNormalizeVideo_RawScoreFallback(t *testing.T) {
	// No metadata.raw_score: derive it from confidence/100 and still
	// apply the single inversion. {is_fake:false, confidence:33.9}
	// must come out as 66.1.
	resp := &videoResponse{IsFake: boolPtr(false), Confidence: 33.9}

	res, err := normalizeVideo(resp)
	require.NoError(t, err)
	assert.Equal(t, PredictionReal, res.Prediction)
	assert.InDelta(t, 66.1, res.ConfidencePercent, 1e-9)
	require.NotNil(t, res.RawScore)
	assert.InDelta(t, 0.339, *res.RawScore, 1e-9)
}

func TestNormalizeVideo_MissingVerdict(t *testing.T) {
	_, err := normalizeVideo(&videoResponse{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		description    string
		isFake         bool
		realProb       float64
		fakeProb       float64
		wantPrediction Prediction
		wantConfidence float64
	}{
		{"fake image keeps fake probability", true, 0.08, 0.92, PredictionFake, 92},
		{"real image inverts fake probability", false, 0.92, 0.08, PredictionReal, 92},
		{"uncertain real image", false, 0.55, 0.45, PredictionReal, 55},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			resp := &imageResponse{IsFake: boolPtr(tt.isFake), Model: "vae", Results: &imageResults{}}
			resp.Results.Probabilities.Real = tt.realProb
			resp.Results.Probabilities.Fake = tt.fakeProb

			res, err := normalizeImage(resp)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrediction, res.Prediction)
			assert.InDelta(t, tt.wantConfidence, res.ConfidencePercent, 1e-9)
			assert.Equal(t, "vae", res.ModelLabel)
		})
	}
}

func TestNormalizeImage_MissingResults(t *testing.T) {
	_, err := normalizeImage(&imageResponse{IsFake: boolPtr(true)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNormalizeAudio_MaxOfClassProbabilities(t *testing.T) {
	tests := []struct {
		description    string
		bonafide       float64
		spoof          float64
		isFake         bool
		wantPrediction Prediction
		wantConfidence float64
	}{
		{"spoofed audio uses spoof probability", 0.07, 0.93, true, PredictionFake, 93},
		{"genuine audio uses bonafide probability", 0.93, 0.07, false, PredictionReal, 93},
		// Confidence is max(bonafide, spoof) regardless of the verdict;
		// no inversion is ever applied for audio.
		{"max holds even against the verdict", 0.30, 0.70, false, PredictionReal, 70},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			resp := &audioResponse{Results: &audioResults{
				Verdict:  "verdict",
				Bonafide: tt.bonafide,
				Spoof:    tt.spoof,
				IsFake:   boolPtr(tt.isFake),
			}}

			res, err := normalizeAudio(resp)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrediction, res.Prediction)
			assert.InDelta(t, tt.wantConfidence, res.ConfidencePercent, 1e-9)
		})
	}
}

func TestNormalizeAudio_MissingResults(t *testing.T) {
	_, err := normalizeAudio(&audioResponse{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNormalizeText(t *testing.T) {
	res, err := normalizeText(&textResponse{
		IsAIGenerated:    boolPtr(true),
		AIProbability:    0.81,
		HumanProbability: 0.19,
	})
	require.NoError(t, err)
	assert.Equal(t, PredictionAIGenerated, res.Prediction)
	assert.InDelta(t, 81, res.ConfidencePercent, 1e-9)

	res, err = normalizeText(&textResponse{
		IsAIGenerated:    boolPtr(false),
		AIProbability:    0.19,
		HumanProbability: 0.81,
	})
	require.NoError(t, err)
	assert.Equal(t, PredictionHuman, res.Prediction)
	assert.InDelta(t, 81, res.ConfidencePercent, 1e-9)
}

func TestNormalizeText_MissingVerdict(t *testing.T) {
	_, err := normalizeText(&textResponse{AIProbability: 0.5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}
