package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/veridex/internal/detect"
	"github.com/your-org/veridex/internal/models"
	"github.com/your-org/veridex/internal/queue"
	"github.com/your-org/veridex/internal/storage"
	"github.com/your-org/veridex/pkg/dto"
)

type AnalysisHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewAnalysisHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *AnalysisHandler {
	return &AnalysisHandler{db: db, minio: minio, producer: producer}
}

func (h *AnalysisHandler) List(c *gin.Context) {
	var q dto.AnalysisQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var mediaType *detect.MediaType
	if q.MediaType != "" {
		mt := detect.MediaType(q.MediaType)
		if !mt.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media_type"})
			return
		}
		mediaType = &mt
	}

	var status *models.AnalysisStatus
	if q.Status != "" {
		st := models.AnalysisStatus(q.Status)
		status = &st
	}

	var from, to *time.Time
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		from = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		to = &t
	}

	analyses, total, err := h.db.ListAnalyses(c.Request.Context(), mediaType, status, from, to, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AnalysisResponse, 0, len(analyses))
	for _, a := range analyses {
		resp = append(resp, AnalysisToResponse(&a))
	}

	c.JSON(http.StatusOK, dto.AnalysisListResponse{Analyses: resp, Total: total})
}

func (h *AnalysisHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	a, err := h.db.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}

	c.JSON(http.StatusOK, AnalysisToResponse(a))
}

// Media serves the original upload for an analysis.
func (h *AnalysisHandler) Media(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	a, err := h.db.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if a == nil || a.ObjectKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), a.ObjectKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}

	c.Data(http.StatusOK, detect.ContentTypeFor(a.Filename, data), data)
}

// Delete removes an analysis and its stored media. A queued or running
// analysis gets a cancel command first so workers abandon it.
func (h *AnalysisHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}

	a, err := h.db.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}

	if a.Status == models.AnalysisStatusQueued || a.Status == models.AnalysisStatusAnalyzing {
		_ = h.producer.PublishControl(marshalCancel(id))
	}

	if a.ObjectKey != "" {
		if err := h.minio.DeletePrefix(c.Request.Context(), "uploads/"+id.String()+"/"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.db.DeleteAnalysis(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *AnalysisHandler) Summary(c *gin.Context) {
	rows, err := h.db.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.SummaryResponse{Entries: make([]dto.SummaryEntry, 0, len(rows))}
	for _, r := range rows {
		resp.Entries = append(resp.Entries, dto.SummaryEntry{
			MediaType:  string(r.MediaType),
			Prediction: r.Prediction,
			Count:      r.Count,
		})
		resp.Total += r.Count
	}

	c.JSON(http.StatusOK, resp)
}

// AnalysisToResponse converts a stored analysis into its API shape.
func AnalysisToResponse(a *models.Analysis) dto.AnalysisResponse {
	resp := dto.AnalysisResponse{
		ID:                a.ID,
		MediaType:         string(a.MediaType),
		Filename:          a.Filename,
		Status:            string(a.Status),
		Prediction:        a.Prediction,
		ConfidencePercent: a.ConfidencePercent,
		RawScore:          a.RawScore,
		ModelLabel:        a.ModelLabel,
		FramesAnalyzed:    a.FramesAnalyzed,
		ProcessingTimeMs:  a.ProcessingTimeMs,
		ErrorMessage:      a.ErrorMessage,
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.Format(time.RFC3339),
	}
	if a.ObjectKey != "" {
		resp.MediaURL = "/v1/analyses/" + a.ID.String() + "/media"
	}
	return resp
}
