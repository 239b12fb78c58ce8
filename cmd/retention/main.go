// Command retention prunes search records older than the configured
// retention window, together with their archived results. Run it from
// cron or a Kubernetes CronJob.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/your-org/facesearch/internal/config"
	"github.com/your-org/facesearch/internal/observability"
	"github.com/your-org/facesearch/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	cutoff := time.Now().Add(-cfg.Retention.MaxAge)
	slog.Info("starting retention run", "cutoff", cutoff, "max_age", cfg.Retention.MaxAge, "dry_run", *dryRun)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *dryRun {
		slog.Info("dry run: records older than cutoff would be deleted", "cutoff", cutoff)
		return
	}

	keys, err := db.DeleteSearchRecordsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("delete expired records", "error", err)
		os.Exit(1)
	}
	slog.Info("expired records deleted", "count", len(keys))

	if len(keys) > 0 {
		if err := minioStore.DeleteObjects(ctx, keys); err != nil {
			// Orphaned archives are harmless; the next run retries nothing,
			// so log loudly for the operator.
			slog.Error("delete archived results", "error", err)
			os.Exit(1)
		}
		slog.Info("archived results deleted", "count", len(keys))
	}

	slog.Info("retention run complete")
}
