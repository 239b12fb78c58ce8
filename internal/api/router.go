package api

import (
	"image"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/facesearch/internal/aggregate"
	"github.com/your-org/facesearch/internal/api/handlers"
	"github.com/your-org/facesearch/internal/api/ws"
	"github.com/your-org/facesearch/internal/auth"
	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/imaging"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/queue"
	"github.com/your-org/facesearch/internal/report"
	"github.com/your-org/facesearch/internal/storage"
)

type RouterConfig struct {
	APIKeys    []config.APIKeyRef
	DB         *storage.PostgresStore
	MinIO      *storage.MinIOStore
	Producer   *queue.Producer
	Hub        *ws.Hub
	Prep       *imaging.Preprocessor
	Aggregator *aggregate.Aggregator
	Reports    *report.Builder
	// AnalyzeFn runs face detection and embedding on a decoded image.
	AnalyzeFn func(img image.Image) ([]models.DetectedFace, error)
	// EmbedFn extracts the primary face embedding from raw image bytes.
	EmbedFn func(imageData []byte) ([]float32, float32, error)
	// MatchThreshold is the cosine floor for the /compare endpoint.
	MatchThreshold float64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Analysis & name search
	analyzeH := handlers.NewAnalyzeHandler(cfg.Prep, cfg.Aggregator, cfg.DB, cfg.MinIO, cfg.Producer)
	analyzeH.AnalyzeFn = cfg.AnalyzeFn
	v1.POST("/analyze", analyzeH.Analyze)
	v1.POST("/search/name", analyzeH.SearchByName)

	// Stateless utilities
	mediaH := handlers.NewMediaHandler(cfg.Prep, cfg.MatchThreshold)
	v1.POST("/compare", mediaH.Compare)
	v1.POST("/enhance", mediaH.Enhance)

	// History
	historyH := handlers.NewHistoryHandler(cfg.DB, cfg.MinIO)
	v1.GET("/history", historyH.List)
	v1.GET("/history/:id", historyH.Get)

	// Reports
	reportH := handlers.NewReportHandler(cfg.DB, cfg.MinIO, cfg.Reports)
	v1.POST("/reports", reportH.Create)

	// Watchlist
	watchH := handlers.NewWatchlistHandler(cfg.DB, cfg.MinIO)
	watchH.EmbedFn = cfg.EmbedFn
	v1.POST("/watchlist/persons", watchH.CreatePerson)
	v1.GET("/watchlist/persons", watchH.ListPersons)
	v1.GET("/watchlist/persons/:id", watchH.GetPerson)
	v1.DELETE("/watchlist/persons/:id", watchH.DeletePerson)
	v1.POST("/watchlist/persons/:id/faces", watchH.AddFace)
	v1.GET("/watchlist/persons/:id/faces", watchH.ListFaces)
	v1.DELETE("/watchlist/persons/:id/faces/:faceId", watchH.DeleteFace)

	// Admin
	v1.GET("/stats", auth.RequireAdmin(), systemH.Stats)

	return r
}
