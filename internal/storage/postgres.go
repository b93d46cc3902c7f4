package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/veridex/internal/config"
	"github.com/your-org/veridex/internal/detect"
	"github.com/your-org/veridex/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Analyses ---

func (s *PostgresStore) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = models.AnalysisStatusQueued
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO analyses (id, media_type, filename, object_key, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		a.ID, a.MediaType, a.Filename, a.ObjectKey, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	a := &models.Analysis{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, media_type, filename, object_key, status, prediction, confidence_percent, raw_score,
		        model_label, frames_analyzed, processing_time_ms, error_message, created_at, updated_at
		 FROM analyses WHERE id = $1`, id,
	).Scan(&a.ID, &a.MediaType, &a.Filename, &a.ObjectKey, &a.Status, &a.Prediction,
		&a.ConfidencePercent, &a.RawScore, &a.ModelLabel, &a.FramesAnalyzed,
		&a.ProcessingTimeMs, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns a filtered, paginated history page plus the
// total row count for the filter.
func (s *PostgresStore) ListAnalyses(ctx context.Context, mediaType *detect.MediaType, status *models.AnalysisStatus, from, to *time.Time, limit, offset int) ([]models.Analysis, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if mediaType != nil {
		baseWhere += fmt.Sprintf(" AND media_type = $%d", argIdx)
		args = append(args, *mediaType)
		argIdx++
	}
	if status != nil {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *status)
		argIdx++
	}
	if from != nil {
		baseWhere += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM analyses " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, media_type, filename, object_key, status, prediction, confidence_percent, raw_score,
		        model_label, frames_analyzed, processing_time_ms, error_message, created_at, updated_at
		 FROM analyses %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		var a models.Analysis
		if err := rows.Scan(&a.ID, &a.MediaType, &a.Filename, &a.ObjectKey, &a.Status, &a.Prediction,
			&a.ConfidencePercent, &a.RawScore, &a.ModelLabel, &a.FramesAnalyzed,
			&a.ProcessingTimeMs, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, total, nil
}

func (s *PostgresStore) UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, status models.AnalysisStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		status, errMsg, id)
	return err
}

// ApplyResult writes a worker's outcome onto the analysis row.
func (s *PostgresStore) ApplyResult(ctx context.Context, ev *models.ResultEvent) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE analyses
		 SET status = $1, prediction = $2, confidence_percent = $3, raw_score = $4,
		     model_label = $5, frames_analyzed = $6, processing_time_ms = $7,
		     error_message = $8, updated_at = now()
		 WHERE id = $9`,
		ev.Status, ev.Prediction, ev.ConfidencePercent, ev.RawScore,
		ev.ModelLabel, ev.FramesAnalyzed, ev.ProcessingTimeMs,
		ev.ErrorMessage, ev.AnalysisID)
	if err != nil {
		return fmt.Errorf("apply result: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis not found")
	}
	return nil
}

// SummaryRow is one line of the per-type verdict tally.
type SummaryRow struct {
	MediaType  detect.MediaType `json:"media_type"`
	Prediction string           `json:"prediction"`
	Count      int              `json:"count"`
}

// Summary tallies completed analyses by media type and prediction.
func (s *PostgresStore) Summary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT media_type, prediction, COUNT(*)
		 FROM analyses WHERE status = 'completed'
		 GROUP BY media_type, prediction
		 ORDER BY media_type, prediction`)
	if err != nil {
		return nil, fmt.Errorf("summarize analyses: %w", err)
	}
	defer rows.Close()

	var summary []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.MediaType, &r.Prediction, &r.Count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary = append(summary, r)
	}
	return summary, nil
}
