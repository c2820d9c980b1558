// Command serve exposes the query API over a previously built dataset. It
// loads DATA_DIR at startup and serves records, groups, and exports until
// interrupted.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/nmfoodwatch/inspection-etl/internal/adapter/http"
	"github.com/nmfoodwatch/inspection-etl/internal/config"
	"github.com/nmfoodwatch/inspection-etl/internal/dataset"
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/nmfoodwatch/inspection-etl/internal/observability"
)

// datasetReadiness reports ready once a dataset has been loaded.
type datasetReadiness struct {
	err error
}

func (d *datasetReadiness) CheckReadiness(_ context.Context) error { return d.err }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	ready := &datasetReadiness{}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, domain.AggregateOptions{
		GroupByAddress: cfg.GroupByAddress,
	}, logger)

	records, err := dataset.Load(cfg.DataDir)
	if err != nil {
		ready.err = err
		logger.Warn("dataset not loaded, serving empty", "dir", cfg.DataDir, "error", err)
	} else {
		srv.SetDataset(records)
		logger.Info("dataset loaded", "dir", cfg.DataDir, "records", len(records))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
