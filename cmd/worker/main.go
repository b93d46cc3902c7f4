package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/veridex/internal/config"
	"github.com/your-org/veridex/internal/detect"
	"github.com/your-org/veridex/internal/models"
	"github.com/your-org/veridex/internal/observability"
	"github.com/your-org/veridex/internal/queue"
	"github.com/your-org/veridex/internal/session"
	"github.com/your-org/veridex/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Veridex detection worker",
		"workers", cfg.Worker.Count,
		"backend", cfg.Backend.BaseURL,
	)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Inference backend client; the session manager keys in-flight
	// calls by analysis ID so cancel commands can abort them.
	backend := detect.NewClient(cfg.Backend)
	sessions := session.NewManager(backend, nil)
	defer sessions.CancelAll()

	runner := &taskRunner{
		db:       db,
		minio:    minioStore,
		producer: producer,
		sessions: sessions,
	}

	// Create NATS consumer
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe to cancel commands
	ctrlSub, err := consumer.SubscribeControl(func(data []byte) {
		var cmd models.CancelCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Error("unmarshal control command", "error", err)
			return
		}
		if cmd.Action == "cancel" {
			sessions.Cancel(cmd.AnalysisID)
			slog.Info("cancel command received", "analysis_id", cmd.AnalysisID)
		}
	})
	if err != nil {
		slog.Error("subscribe control", "error", err)
		os.Exit(1)
	}
	defer func() { _ = ctrlSub.Unsubscribe() }()

	// Start consuming analysis tasks
	err = consumer.ConsumeTasks(ctx, "detection-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.AnalysisTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal analysis task", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		return runner.Run(ctx, task)
	}, cfg.Worker.Count)
	if err != nil {
		slog.Error("start task consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		addr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		slog.Info("worker metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

type taskRunner struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
	sessions *session.Manager
}

// Run executes one queued analysis. Returning an error NAKs the task
// for redelivery; permanent failures are published and acked.
func (r *taskRunner) Run(ctx context.Context, task models.AnalysisTask) error {
	id := task.AnalysisID.String()
	slog.Info("analysis started", "analysis_id", id, "media_type", task.MediaType)

	if err := r.db.UpdateAnalysisStatus(ctx, task.AnalysisID, models.AnalysisStatusAnalyzing, ""); err != nil {
		slog.Error("mark analyzing", "analysis_id", id, "error", err)
	}
	_ = r.producer.PublishResult(ctx, id, models.ResultEvent{
		AnalysisID: task.AnalysisID,
		MediaType:  task.MediaType,
		Status:     models.AnalysisStatusAnalyzing,
	})

	req := detect.Request{
		MediaType: task.MediaType,
		Filename:  task.Filename,
		Text:      task.Text,
		Options:   task.Options,
	}
	if task.ObjectKey != "" {
		payload, err := r.minio.GetObject(ctx, task.ObjectKey)
		if err != nil {
			return fmt.Errorf("fetch upload %s: %w", task.ObjectKey, err)
		}
		req.Payload = payload
	}

	start := time.Now()
	result, err := r.sessions.Submit(ctx, id, req)
	switch {
	case err == nil:
		observability.DetectionDuration.WithLabelValues(string(task.MediaType)).Observe(time.Since(start).Seconds())
		observability.DetectionsCompleted.WithLabelValues(string(task.MediaType), string(result.Prediction)).Inc()
		return r.publishCompleted(ctx, task, result)

	case errors.Is(err, session.ErrSuperseded):
		// Cancelled via control command; nothing left to deliver.
		observability.AnalysesSuperseded.Inc()
		slog.Info("analysis cancelled", "analysis_id", id)
		return nil

	case errors.Is(err, detect.ErrNetwork):
		// Backend unreachable: let JetStream redeliver.
		return fmt.Errorf("analysis %s: %w", id, err)

	default:
		// Server, malformed or validation errors are permanent.
		observability.DetectionsCompleted.WithLabelValues(string(task.MediaType), "error").Inc()
		return r.publishFailed(ctx, task, err)
	}
}

func (r *taskRunner) publishCompleted(ctx context.Context, task models.AnalysisTask, result *detect.Result) error {
	conf := result.ConfidencePercent
	ev := models.ResultEvent{
		AnalysisID:        task.AnalysisID,
		MediaType:         task.MediaType,
		Status:            models.AnalysisStatusCompleted,
		Prediction:        string(result.Prediction),
		ConfidencePercent: &conf,
		RawScore:          result.RawScore,
		ModelLabel:        result.ModelLabel,
		FramesAnalyzed:    result.Aux.FramesAnalyzed,
		ProcessingTimeMs:  result.Aux.ProcessingTimeMs,
		FinishedAt:        time.Now(),
	}
	if err := r.producer.PublishResult(ctx, task.AnalysisID.String(), ev); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	slog.Info("analysis completed",
		"analysis_id", task.AnalysisID,
		"prediction", result.Prediction,
		"confidence", result.ConfidencePercent,
	)
	return nil
}

func (r *taskRunner) publishFailed(ctx context.Context, task models.AnalysisTask, cause error) error {
	ev := models.ResultEvent{
		AnalysisID:   task.AnalysisID,
		MediaType:    task.MediaType,
		Status:       models.AnalysisStatusFailed,
		ErrorMessage: cause.Error(),
		FinishedAt:   time.Now(),
	}
	if err := r.producer.PublishResult(ctx, task.AnalysisID.String(), ev); err != nil {
		return fmt.Errorf("publish failure: %w", err)
	}
	slog.Warn("analysis failed", "analysis_id", task.AnalysisID, "error", cause)
	return nil
}
