// Command build runs one dataset build: fetch inspections from every
// configured source, score them, and write the dataset files under DATA_DIR.
// Optional sinks are a Kafka topic (KAFKA_ENABLED) and a sqlite run archive
// (ARCHIVE_PATH).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nmfoodwatch/inspection-etl/internal/adapter/arcgis"
	kafkaadapter "github.com/nmfoodwatch/inspection-etl/internal/adapter/kafka"
	"github.com/nmfoodwatch/inspection-etl/internal/archive"
	"github.com/nmfoodwatch/inspection-etl/internal/config"
	"github.com/nmfoodwatch/inspection-etl/internal/observability"
	"github.com/nmfoodwatch/inspection-etl/internal/pipeline"
	"github.com/nmfoodwatch/inspection-etl/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var clientOpts []arcgis.Option
	if cfg.NMEDArcGISURL != "" {
		clientOpts = append(clientOpts, arcgis.WithFeatureURL(cfg.NMEDArcGISURL))
	}
	if cfg.NMEDApigeeURL != "" {
		clientOpts = append(clientOpts, arcgis.WithApigeeURL(cfg.NMEDApigeeURL))
	}
	client := arcgis.NewClient(cfg.NMEDAPIKey, cfg.NMEDTimeout, logger, clientOpts...)

	sources := []source.Source{
		source.NewNMED(client, cfg.NMEDCities, cfg.NMEDLookbackDays, logger),
		source.NewABQ(cfg.ABQRowsFile, cfg.ABQTextDir, logger),
	}

	b := pipeline.New(sources, cfg.DataDir, logger, metrics)

	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		b = b.WithPublisher(publisher)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	if cfg.ArchivePath != "" {
		db, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			logger.Error("failed to open run archive", "path", cfg.ArchivePath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("archive close error", "error", err)
			}
		}()
		b = b.WithArchiver(db)
		logger.Info("run archive enabled", "path", cfg.ArchivePath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manifest, err := b.Run(ctx)
	if err != nil {
		logger.Error("dataset build failed", "error", err)
		os.Exit(1)
	}

	logger.Info("dataset build complete",
		"version", manifest.DatasetVersion,
		"records", manifest.TotalRecords,
		"cities", len(manifest.Cities),
	)
}
