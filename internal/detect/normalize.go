package detect

// Normalization of the per-type backend payloads into Result. The one
// rule shared by video, image and text: ConfidencePercent is confidence
// in the chosen label, so the raw fake/AI probability is inverted when
// the verdict is real/human. The inversion happens exactly once, here.

// labelConfidence applies the inversion rule to a raw fake-probability
// in [0,1] and clamps the outcome to [0,100].
func labelConfidence(rawScore float64, isFake bool) float64 {
	if isFake {
		return clampPercent(rawScore * 100)
	}
	return clampPercent((1 - rawScore) * 100)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeVideo(resp *videoResponse) (*Result, error) {
	if resp.IsFake == nil {
		return nil, malformedErr(MediaVideo, "response missing is_fake")
	}

	// The backend reports confidence on a 0-100 scale alongside the
	// 0-1 raw_score. Older deployments omit metadata.raw_score; in
	// that case the raw score is derived from confidence/100 and the
	// inversion below still applies.
	raw := resp.Confidence / 100
	if resp.Metadata.RawScore != nil {
		raw = *resp.Metadata.RawScore
	}
	raw = clampUnit(raw)

	prediction := PredictionReal
	if *resp.IsFake {
		prediction = PredictionFake
	}

	label := resp.Metadata.ModelVariant
	if label == "" {
		label = "genconvit"
	}

	return &Result{
		MediaType:         MediaVideo,
		Prediction:        prediction,
		ConfidencePercent: labelConfidence(raw, *resp.IsFake),
		ModelLabel:        label,
		RawScore:          &raw,
		Aux: Aux{
			FramesAnalyzed:   resp.Metadata.FramesAnalyzed,
			ProcessingTimeMs: resp.Metadata.ProcessingTimeMs,
		},
	}, nil
}

func normalizeImage(resp *imageResponse) (*Result, error) {
	if resp.IsFake == nil || resp.Results == nil {
		return nil, malformedErr(MediaImage, "response missing is_fake or results")
	}

	raw := clampUnit(resp.Results.Probabilities.Fake)

	prediction := PredictionReal
	if *resp.IsFake {
		prediction = PredictionFake
	}

	realProb := clampUnit(resp.Results.Probabilities.Real)
	return &Result{
		MediaType:         MediaImage,
		Prediction:        prediction,
		ConfidencePercent: labelConfidence(raw, *resp.IsFake),
		ModelLabel:        resp.Model,
		RawScore:          &raw,
		Aux: Aux{
			RealProbability: &realProb,
			FakeProbability: &raw,
		},
	}, nil
}

// normalizeAudio: bonafide and spoof are already per-class
// probabilities, so the confidence of the chosen label is simply the
// larger of the two. No inversion.
func normalizeAudio(resp *audioResponse) (*Result, error) {
	if resp.Results == nil || resp.Results.IsFake == nil {
		return nil, malformedErr(MediaAudio, "response missing results")
	}

	bonafide := clampUnit(resp.Results.Bonafide)
	spoof := clampUnit(resp.Results.Spoof)

	prediction := PredictionReal
	if *resp.Results.IsFake {
		prediction = PredictionFake
	}

	confidence := bonafide
	if spoof > confidence {
		confidence = spoof
	}

	label := resp.Results.Verdict
	if label == "" {
		label = "anti-spoof"
	}

	return &Result{
		MediaType:         MediaAudio,
		Prediction:        prediction,
		ConfidencePercent: clampPercent(confidence * 100),
		ModelLabel:        label,
		RawScore:          &spoof,
		Aux: Aux{
			RealProbability: &bonafide,
			FakeProbability: &spoof,
		},
	}, nil
}

func normalizeText(resp *textResponse) (*Result, error) {
	if resp.IsAIGenerated == nil {
		return nil, malformedErr(MediaText, "response missing is_ai_generated")
	}

	raw := clampUnit(resp.AIProbability)

	prediction := PredictionHuman
	if *resp.IsAIGenerated {
		prediction = PredictionAIGenerated
	}

	human := clampUnit(resp.HumanProbability)
	return &Result{
		MediaType:         MediaText,
		Prediction:        prediction,
		ConfidencePercent: labelConfidence(raw, *resp.IsAIGenerated),
		ModelLabel:        "ai-content",
		RawScore:          &raw,
		Aux: Aux{
			RealProbability: &human,
			FakeProbability: &raw,
		},
	}, nil
}
