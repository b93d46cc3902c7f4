package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/veridex/internal/api"
	"github.com/your-org/veridex/internal/api/handlers"
	"github.com/your-org/veridex/internal/api/ws"
	"github.com/your-org/veridex/internal/config"
	"github.com/your-org/veridex/internal/detect"
	"github.com/your-org/veridex/internal/models"
	"github.com/your-org/veridex/internal/observability"
	"github.com/your-org/veridex/internal/queue"
	"github.com/your-org/veridex/internal/session"
	"github.com/your-org/veridex/internal/storage"
	"github.com/your-org/veridex/pkg/dto"
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

	slog.Info("starting Veridex gateway", "port", cfg.Server.Port, "backend", cfg.Backend.BaseURL)

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
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Inference backend client and per-surface session manager
	backend := detect.NewClient(cfg.Backend)
	sessions := session.NewManager(backend, func(surfaceID string, phase session.Phase, _ *detect.Result, err error) {
		if err != nil {
			slog.Debug("analysis phase", "surface", surfaceID, "phase", phase, "error", err)
			return
		}
		slog.Debug("analysis phase", "surface", surfaceID, "phase", phase)
	})
	defer sessions.CancelAll()

	// Consume result events: persist and broadcast via WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create result consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeResults(ctx, "gateway-results", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.ResultEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			return err
		}

		evtType := "analysis_completed"
		switch ev.Status {
		case models.AnalysisStatusAnalyzing:
			evtType = "analysis_started"
			if err := db.UpdateAnalysisStatus(ctx, ev.AnalysisID, ev.Status, ""); err != nil {
				slog.Error("update analysis status", "error", err)
			}
		case models.AnalysisStatusFailed:
			evtType = "analysis_failed"
			if err := db.ApplyResult(ctx, &ev); err != nil {
				slog.Error("apply result", "error", err)
			}
		default:
			if err := db.ApplyResult(ctx, &ev); err != nil {
				slog.Error("apply result", "error", err)
			}
		}

		event := &dto.WSEvent{
			Type:       evtType,
			AnalysisID: ev.AnalysisID,
			Status:     string(ev.Status),
		}
		if a, err := db.GetAnalysis(ctx, ev.AnalysisID); err == nil && a != nil {
			resp := handlers.AnalysisToResponse(a)
			event.Data = &resp
		}
		hub.BroadcastEvent(event)

		return nil
	})
	if err != nil {
		slog.Warn("start result consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		MinIO:    minioStore,
		Producer: producer,
		Hub:      hub,
		Backend:  backend,
		Sessions: sessions,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // large video uploads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gateway...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("gateway stopped")
}
