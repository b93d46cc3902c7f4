package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/veridex/internal/api/handlers"
	"github.com/your-org/veridex/internal/api/ws"
	"github.com/your-org/veridex/internal/auth"
	"github.com/your-org/veridex/internal/detect"
	"github.com/your-org/veridex/internal/queue"
	"github.com/your-org/veridex/internal/session"
	"github.com/your-org/veridex/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
	Backend  *detect.Client
	Sessions *session.Manager
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer, cfg.Backend)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Detection
	detectH := handlers.NewDetectHandler(cfg.DB, cfg.MinIO, cfg.Producer, cfg.Sessions)
	v1.POST("/detect/:type", detectH.Detect)
	v1.GET("/backend/health", detectH.Health(cfg.Backend))

	// Analyses (async submission + history)
	analysisH := handlers.NewAnalysisHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	v1.POST("/analyses", detectH.Submit)
	v1.GET("/analyses", analysisH.List)
	v1.GET("/analyses/summary", analysisH.Summary)
	v1.GET("/analyses/:id", analysisH.Get)
	v1.GET("/analyses/:id/media", analysisH.Media)
	v1.DELETE("/analyses/:id", analysisH.Delete)

	return r
}
