package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/veridex/internal/detect"
	"github.com/your-org/veridex/internal/models"
	"github.com/your-org/veridex/internal/observability"
	"github.com/your-org/veridex/internal/queue"
	"github.com/your-org/veridex/internal/session"
	"github.com/your-org/veridex/internal/storage"
	"github.com/your-org/veridex/pkg/dto"
)

type DetectHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
	sessions *session.Manager
}

func NewDetectHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer, sessions *session.Manager) *DetectHandler {
	return &DetectHandler{db: db, minio: minio, producer: producer, sessions: sessions}
}

// Detect handles POST /v1/detect/:type — synchronous analysis through
// the session manager, so a new submission on the same surface
// supersedes an earlier in-flight one.
func (h *DetectHandler) Detect(c *gin.Context) {
	mediaType := detect.MediaType(c.Param("type"))
	if !mediaType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported media type"})
		return
	}

	req, surfaceID, err := h.buildRequest(c, mediaType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if surfaceID == "" {
		// No surface means no supersession scope; give the call its own.
		surfaceID = uuid.NewString()
	}

	observability.AnalysesSubmitted.WithLabelValues(string(mediaType), "sync").Inc()
	start := time.Now()

	result, err := h.sessions.Submit(c.Request.Context(), surfaceID, *req)
	if err != nil {
		if errors.Is(err, session.ErrSuperseded) {
			observability.AnalysesSuperseded.Inc()
			c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer submission"})
			return
		}
		observability.DetectionsCompleted.WithLabelValues(string(mediaType), "error").Inc()
		c.JSON(statusForDetectError(err), gin.H{"error": err.Error()})
		return
	}

	observability.DetectionDuration.WithLabelValues(string(mediaType)).Observe(time.Since(start).Seconds())
	observability.DetectionsCompleted.WithLabelValues(string(mediaType), string(result.Prediction)).Inc()

	h.recordHistory(c, req, result)

	c.JSON(http.StatusOK, toDetectionResponse(result))
}

// Submit handles POST /v1/analyses — asynchronous analysis. The upload
// is stored, a task is queued, and the caller polls or subscribes to
// the WebSocket feed for completion.
func (h *DetectHandler) Submit(c *gin.Context) {
	mediaType := detect.MediaType(c.PostForm("media_type"))
	if mediaType == "" && c.ContentType() == "application/json" {
		mediaType = detect.MediaText
	}
	if !mediaType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported media type"})
		return
	}

	req, _, err := h.buildRequest(c, mediaType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analysis := &models.Analysis{
		MediaType: mediaType,
		Filename:  req.Filename,
		Status:    models.AnalysisStatusQueued,
	}
	if mediaType == detect.MediaText {
		analysis.Filename = "text"
	}

	if err := h.db.CreateAnalysis(c.Request.Context(), analysis); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task := models.AnalysisTask{
		AnalysisID: analysis.ID,
		MediaType:  mediaType,
		Filename:   req.Filename,
		Text:       req.Text,
		Options:    req.Options,
		QueuedAt:   time.Now(),
	}

	if mediaType != detect.MediaText {
		key := storage.UploadKey(analysis.ID.String(), req.Filename)
		contentType := detect.ContentTypeFor(req.Filename, req.Payload)
		if err := h.minio.PutObject(c.Request.Context(), key, req.Payload, contentType); err != nil {
			_ = h.db.UpdateAnalysisStatus(c.Request.Context(), analysis.ID, models.AnalysisStatusFailed, "failed to store upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
			return
		}
		task.ObjectKey = key
		analysis.ObjectKey = key
	}

	if err := h.producer.PublishTask(c.Request.Context(), analysis.ID.String(), task); err != nil {
		_ = h.db.UpdateAnalysisStatus(c.Request.Context(), analysis.ID, models.AnalysisStatusFailed, "failed to queue analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue analysis"})
		return
	}

	observability.AnalysesSubmitted.WithLabelValues(string(mediaType), "async").Inc()

	c.JSON(http.StatusAccepted, dto.SubmitAnalysisResponse{
		ID:     analysis.ID.String(),
		Status: string(models.AnalysisStatusQueued),
	})
}

// Health handles GET /v1/backend/health — proxies the inference
// backend's health endpoint.
func (h *DetectHandler) Health(client *detect.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		hs, err := client.Health(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, hs)
	}
}

func (h *DetectHandler) buildRequest(c *gin.Context, mediaType detect.MediaType) (*detect.Request, string, error) {
	if mediaType == detect.MediaText {
		var body dto.DetectTextRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, "", err
		}
		return &detect.Request{MediaType: detect.MediaText, Text: body.Text}, body.SurfaceID, nil
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file provided")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	opts := detect.Options{}
	if v := c.Query("num_frames"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.NumFrames = n
		}
	}
	if v := c.Query("model"); v != "" {
		opts.ModelVariant = v
	}
	if v := c.Query("variant"); v != "" {
		opts.ModelVariant = v
	}

	surfaceID := c.PostForm("surface_id")
	if surfaceID == "" {
		surfaceID = c.Query("surface_id")
	}

	return &detect.Request{
		MediaType: mediaType,
		Filename:  fileHeader.Filename,
		Payload:   payload,
		Options:   opts,
	}, surfaceID, nil
}

// recordHistory persists a finished synchronous analysis. Failures are
// logged by the store; history must not fail the detection itself.
func (h *DetectHandler) recordHistory(c *gin.Context, req *detect.Request, result *detect.Result) {
	analysis := &models.Analysis{
		MediaType: req.MediaType,
		Filename:  req.Filename,
		Status:    models.AnalysisStatusCompleted,
	}
	if req.MediaType == detect.MediaText {
		analysis.Filename = "text"
	}
	if err := h.db.CreateAnalysis(c.Request.Context(), analysis); err != nil {
		return
	}
	conf := result.ConfidencePercent
	_ = h.db.ApplyResult(c.Request.Context(), &models.ResultEvent{
		AnalysisID:        analysis.ID,
		MediaType:         req.MediaType,
		Status:            models.AnalysisStatusCompleted,
		Prediction:        string(result.Prediction),
		ConfidencePercent: &conf,
		RawScore:          result.RawScore,
		ModelLabel:        result.ModelLabel,
		FramesAnalyzed:    result.Aux.FramesAnalyzed,
		ProcessingTimeMs:  result.Aux.ProcessingTimeMs,
		FinishedAt:        time.Now(),
	})
}

func statusForDetectError(err error) int {
	switch {
	case errors.Is(err, detect.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, detect.ErrNetwork):
		return http.StatusGatewayTimeout
	case errors.Is(err, detect.ErrServer), errors.Is(err, detect.ErrMalformed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func toDetectionResponse(r *detect.Result) dto.DetectionResponse {
	return dto.DetectionResponse{
		MediaType:         string(r.MediaType),
		Prediction:        string(r.Prediction),
		ConfidencePercent: r.ConfidencePercent,
		ModelLabel:        r.ModelLabel,
		RawScore:          r.RawScore,
		FramesAnalyzed:    r.Aux.FramesAnalyzed,
		ProcessingTimeMs:  r.Aux.ProcessingTimeMs,
		RealProbability:   r.Aux.RealProbability,
		FakeProbability:   r.Aux.FakeProbability,
	}
}

func marshalCancel(id uuid.UUID) []byte {
	data, _ := json.Marshal(models.CancelCommand{Action: "cancel", AnalysisID: id.String()})
	return data
}
