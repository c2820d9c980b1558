// Package pipeline orchestrates a dataset build: fetch every source,
// normalize and score against merged history, publish the dataset files, and
// feed the optional sinks.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/archive"
	"github.com/nmfoodwatch/inspection-etl/internal/dataset"
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/nmfoodwatch/inspection-etl/internal/observability"
	"github.com/nmfoodwatch/inspection-etl/internal/source"
)

// Publisher pushes scored records to a streaming sink.
type Publisher interface {
	PublishBatch(ctx context.Context, records []domain.InspectionRecord) error
}

// Archiver appends run metadata to the local run archive.
type Archiver interface {
	RecordRun(run archive.Run) error
}

// Builder runs the fetch-normalize-score-write cycle.
type Builder struct {
	sources []source.Source
	dataDir string
	logger  *slog.Logger
	metrics *observability.Metrics

	publisher Publisher // optional
	archiver  Archiver  // optional

	ready atomic.Bool
}

// New creates a Builder writing datasets to dataDir.
func New(sources []source.Source, dataDir string, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{
		sources: sources,
		dataDir: dataDir,
		logger:  logger,
		metrics: metrics,
	}
}

// WithPublisher attaches a streaming sink. Publish failures are logged, not
// fatal: the dataset on disk is the source of truth.
func (b *Builder) WithPublisher(p Publisher) *Builder {
	b.publisher = p
	return b
}

// WithArchiver attaches the run archive.
func (b *Builder) WithArchiver(a Archiver) *Builder {
	b.archiver = a
	return b
}

// CheckReadiness returns nil once at least one run has completed.
func (b *Builder) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("no dataset build has completed yet")
	}
	return nil
}

// Run executes one complete build. A failing source contributes zero records
// and never aborts the run; only a failure to write the dataset is fatal.
// An all-sources-failed run still publishes a valid empty dataset.
func (b *Builder) Run(ctx context.Context) (dataset.Manifest, error) {
	start := time.Now()
	b.metrics.PipelineRunning.Set(1)
	defer b.metrics.PipelineRunning.Set(0)

	var records []domain.InspectionRecord
	for _, src := range b.sources {
		name := string(src.Name())
		fetched, dropped, err := src.Fetch(ctx)
		if err != nil {
			b.logger.Error("source fetch failed, continuing with zero records",
				"source", name, "error", err)
			b.metrics.SourceFailures.WithLabelValues(name).Inc()
			continue
		}
		b.metrics.RecordsFetched.WithLabelValues(name).Add(float64(len(fetched)))
		b.metrics.RecordsDropped.WithLabelValues(name).Add(float64(dropped))
		b.logger.Info("source fetched", "source", name, "records", len(fetched), "dropped", dropped)
		records = append(records, fetched...)
	}

	now := domain.Now()
	records = ScoreRecords(records, now)

	manifest, err := dataset.Write(b.dataDir, records)
	if err != nil {
		b.metrics.RunsTotal.WithLabelValues("error").Inc()
		return dataset.Manifest{}, err
	}
	b.metrics.DatasetRecords.Set(float64(len(records)))

	if b.publisher != nil {
		if err := b.publisher.PublishBatch(ctx, records); err != nil {
			b.logger.Error("publish failed", "error", err, "records", len(records))
		} else {
			b.metrics.RecordsPublished.Add(float64(len(records)))
		}
	}

	if b.archiver != nil {
		nmed, abq := archive.CountBySource(records)
		run := archive.Run{
			GeneratedAt:    manifest.GeneratedAt,
			DatasetVersion: manifest.DatasetVersion,
			NMEDRecords:    nmed,
			ABQRecords:     abq,
			TotalRecords:   manifest.TotalRecords,
		}
		if err := b.archiver.RecordRun(run); err != nil {
			b.logger.Error("archive run failed", "error", err)
		}
	}

	b.metrics.RunsTotal.WithLabelValues("success").Inc()
	b.metrics.RunDuration.Observe(time.Since(start).Seconds())
	b.ready.Store(true)

	b.logger.Info("dataset build complete",
		"records", manifest.TotalRecords,
		"version", manifest.DatasetVersion,
		"duration", time.Since(start))
	return manifest, nil
}
