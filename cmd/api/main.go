package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facesearch/internal/aggregate"
	"github.com/your-org/facesearch/internal/api"
	"github.com/your-org/facesearch/internal/api/ws"
	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/imaging"
	"github.com/your-org/facesearch/internal/models"
	"github.com/your-org/facesearch/internal/observability"
	"github.com/your-org/facesearch/internal/queue"
	"github.com/your-org/facesearch/internal/report"
	"github.com/your-org/facesearch/internal/source"
	"github.com/your-org/facesearch/internal/storage"
	"github.com/your-org/facesearch/internal/vision"
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

	slog.Info("starting facesearch API service", "port", cfg.Server.Port)

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

	// WebSocket hub, fed from the SEARCHES stream
	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create search event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeSearchEvents(ctx, "api-searches", func(ctx context.Context, msg jetstream.Msg) error {
		hub.BroadcastRaw(msg.Data())
		return nil
	})
	if err != nil {
		slog.Warn("start search event consumer", "error", err)
	}

	// Vision analyzer over ONNX Runtime. Without it the analyze and
	// watchlist-enroll endpoints report 503 but the rest of the API works.
	var analyzeFn func(image.Image) ([]models.DetectedFace, error)
	var embedFn func([]byte) ([]float32, float32, error)

	prep := imaging.NewPreprocessor(cfg.Upload)

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed — analysis endpoints will be unavailable", "error", err)
	} else {
		analyzer, err := vision.NewAnalyzer(cfg.Vision)
		if err != nil {
			slog.Warn("vision analyzer init failed — analysis endpoints will be unavailable", "error", err)
		} else {
			analyzeFn = analyzer.Analyze
			embedFn = func(imageData []byte) ([]float32, float32, error) {
				img, err := prep.Prepare(imageData, http.DetectContentType(imageData))
				if err != nil {
					return nil, 0, err
				}
				faces, err := analyzer.Analyze(img.Image)
				if err != nil {
					return nil, 0, err
				}
				if len(faces) == 0 {
					return nil, 0, fmt.Errorf("no face detected")
				}
				return faces[0].Embedding, faces[0].Confidence, nil
			}
			defer analyzer.Close()
			defer ort.DestroyEnvironment()
			slog.Info("vision analyzer ready")
		}
	}

	// Source connectors and the fan-out aggregator
	enabled := cfg.EnabledSources()
	connectors, err := source.Build(enabled, db)
	if err != nil {
		slog.Error("build source connectors", "error", err)
		os.Exit(1)
	}
	aggregator := aggregate.New(cfg.Aggregation, enabled, connectors)
	slog.Info("source fan-out configured", "sources", len(connectors), "deadline", cfg.Aggregation.Deadline)

	reportBuilder, err := report.NewBuilder()
	if err != nil {
		slog.Error("init report builder", "error", err)
		os.Exit(1)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKeys:    cfg.Server.APIKeys,
		DB:         db,
		MinIO:      minioStore,
		Producer:   producer,
		Hub:        hub,
		Prep:       prep,
		Aggregator: aggregator,
		Reports:    reportBuilder,
		AnalyzeFn:  analyzeFn,
		EmbedFn:    embedFn,

		MatchThreshold: cfg.Vision.MatchThreshold,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
