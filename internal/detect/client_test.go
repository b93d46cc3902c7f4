package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/veridex/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.BackendConfig{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		VideoTimeout: 5 * time.Second,
	})
}

func TestDetect_Video(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/v1/detect/video", r.URL.Path)
		req.Equal("15", r.URL.Query().Get("num_frames"))
		req.Equal("ed", r.URL.Query().Get("model"))

		file, header, err := r.FormFile("file")
		req.NoError(err)
		defer file.Close()
		req.Equal("clip.mp4", header.Filename)
		req.Equal("video/mp4", header.Header.Get("Content-Type"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"is_fake":    true,
			"confidence": 87.0,
			"metadata": map[string]interface{}{
				"raw_score":          0.87,
				"frames_analyzed":    15,
				"processing_time_ms": 4210.5,
				"model_variant":      "ed",
			},
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaVideo,
		Filename:  "clip.mp4",
		Payload:   []byte("not really a video"),
	})
	req.NoError(err)
	req.Equal(PredictionFake, res.Prediction)
	req.InDelta(87, res.ConfidencePercent, 1e-9)
	req.Equal(15, res.Aux.FramesAnalyzed)
}

func TestDetect_ImageDefaultsAndVariantQuery(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/v1/detect/image", r.URL.Path)
		req.Equal("vae", r.URL.Query().Get("variant"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"is_fake": false,
			"results": map[string]interface{}{
				"confidence_percentage": 92.0,
				"probabilities":         map[string]float64{"real": 0.92, "fake": 0.08},
			},
			"model": "vae",
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaImage,
		Filename:  "face.png",
		Payload:   []byte{0x89, 0x50, 0x4E, 0x47},
	})
	req.NoError(err)
	req.Equal(PredictionReal, res.Prediction)
	req.InDelta(92, res.ConfidencePercent, 1e-9)
	req.Equal("vae", res.ModelLabel)
}

func TestDetect_LegacyRoutes(t *testing.T) {
	var gotPath atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": map[string]interface{}{
				"verdict": "Spoof", "bonafide": 0.07, "spoof": 0.93, "is_fake": true,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(config.BackendConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		VideoTimeout: 5 * time.Second,
		LegacyRoutes: true,
	})

	res, err := client.Detect(context.Background(), Request{
		MediaType: MediaAudio,
		Filename:  "voice.wav",
		Payload:   []byte("RIFF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/audio/detect", gotPath.Load())
	assert.Equal(t, PredictionFake, res.Prediction)
	assert.InDelta(t, 93, res.ConfidencePercent, 1e-9)
}

func TestDetect_TextSendsJSON(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/v1/ai/detect", r.URL.Path)
		req.Equal("application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		req.NoError(json.NewDecoder(r.Body).Decode(&body))
		req.Equal("once upon a time", body["text"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"is_ai_generated":   true,
			"ai_probability":    0.81,
			"human_probability": 0.19,
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaText,
		Text:      "once upon a time",
	})
	req.NoError(err)
	req.Equal(PredictionAIGenerated, res.Prediction)
	req.InDelta(81, res.ConfidencePercent, 1e-9)
}

func TestDetect_ServerErrorSurfacesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "file too large"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaImage,
		Filename:  "big.png",
		Payload:   []byte("x"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)

	var detErr *Error
	require.ErrorAs(t, err, &detErr)
	assert.Equal(t, "file too large", detErr.Detail)
	assert.Equal(t, http.StatusRequestEntityTooLarge, detErr.StatusCode)
}

func TestDetect_ServerErrorWithoutDetailGetsGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaAudio,
		Filename:  "voice.wav",
		Payload:   []byte("RIFF"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "audio analysis failed")
}

func TestDetect_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaImage,
		Filename:  "face.png",
		Payload:   []byte("x"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDetect_ValidationFailsFastWithoutNetworkCall(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	tests := []struct {
		description string
		request     Request
	}{
		{"unsupported media type", Request{MediaType: "hologram", Payload: []byte("x")}},
		{"empty payload", Request{MediaType: MediaImage, Filename: "face.png"}},
		{"blank text", Request{MediaType: MediaText, Text: "   "}},
		{"unknown model variant", Request{MediaType: MediaImage, Filename: "f.png", Payload: []byte("x"), Options: Options{ModelVariant: "gan"}}},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := client.Detect(context.Background(), tt.request)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Equal(t, int32(0), calls.Load())
}

func TestDetect_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL).Detect(context.Background(), Request{
		MediaType: MediaImage,
		Filename:  "face.png",
		Payload:   []byte("x"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestDetect_TimeoutSurfacesNetworkFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	client := NewClient(config.BackendConfig{
		BaseURL:      srv.URL,
		Timeout:      50 * time.Millisecond,
		VideoTimeout: 50 * time.Millisecond,
	})

	_, err := client.Detect(context.Background(), Request{
		MediaType: MediaImage,
		Filename:  "face.png",
		Payload:   []byte("x"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "inference"})
	}))
	defer srv.Close()

	hs, err := newTestClient(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", hs.Status)
}
