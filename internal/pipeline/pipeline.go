package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/ingest"
	"github.com/pallapothu30/weather-etl/internal/metrics"
	"github.com/pallapothu30/weather-etl/internal/models"
	"github.com/pallapothu30/weather-etl/internal/store"
	"github.com/pallapothu30/weather-etl/internal/transform"
)

// Pipeline runs extract, transform, schema setup and load for one city.
type Pipeline struct {
	cfg      *config.Config
	client   *http.Client
	logger   *zap.Logger
	newRunID func() string
}

// Result describes a completed run.
type Result struct {
	RunID        string
	City         string
	Record       models.Record
	QualityFlags []string
	RowsAffected int64
}

func New(cfg *config.Config, client *http.Client, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		client:   client,
		logger:   logger,
		newRunID: uuid.NewString,
	}
}

// Run executes the whole pipeline once. An empty city means the configured
// default. Stages run strictly in order and the first failure stops the run.
func (p *Pipeline) Run(ctx context.Context, city string) (res *Result, err error) {
	city = p.cfg.ResolveCity(city)
	runID, logger := p.startRun(city)
	start := time.Now()
	defer func() { err = p.finish(logger, runID, start, err) }()

	logger.Info("pipeline started")
	raw, err := ingest.NewExtractor(p.cfg, p.client, logger).Extract(ctx, city)
	if err != nil {
		return nil, err
	}
	return p.transformAndLoad(ctx, logger, runID, city, raw)
}

// Replay loads a previously dumped forecast payload without calling upstream.
func (p *Pipeline) Replay(ctx context.Context, path string) (res *Result, err error) {
	raw, requested, err := ingest.ReadDump(path)
	city := p.cfg.ResolveCity(requested)
	runID, logger := p.startRun(city)
	start := time.Now()
	defer func() { err = p.finish(logger, runID, start, err) }()

	if err != nil {
		return nil, err
	}
	logger.Info("replaying captured payload", zap.String("path", path))
	return p.transformAndLoad(ctx, logger, runID, city, raw)
}

// Dump captures the raw forecast payload for a city into path. It never
// touches the database.
func (p *Pipeline) Dump(ctx context.Context, city, path string) (*ingest.RawDump, error) {
	city = p.cfg.ResolveCity(city)
	if path == "" {
		path = ingest.DefaultDumpPath
	}
	logger := p.logger.With(zap.String("city", city))

	d, err := ingest.NewExtractor(p.cfg, p.client, logger).Dump(ctx, city)
	if err != nil {
		return nil, err
	}
	if err := ingest.WriteDump(path, d); err != nil {
		return nil, err
	}
	logger.Info("raw payload written", zap.String("path", path), zap.String("source", d.CityMetadata.Source))
	return d, nil
}

// Latest returns up to limit stored readings for a city, newest first.
func (p *Pipeline) Latest(ctx context.Context, city string, limit int) ([]models.StoredReading, error) {
	s, err := store.Open(ctx, p.cfg.DB, p.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.RecentReadings(ctx, p.cfg.ResolveCity(city), limit)
}

// Locations returns every stored location.
func (p *Pipeline) Locations(ctx context.Context) ([]models.Location, error) {
	s, err := store.Open(ctx, p.cfg.DB, p.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ListLocations(ctx)
}

func (p *Pipeline) transformAndLoad(ctx context.Context, logger *zap.Logger, runID, city string, raw models.Extracted) (*Result, error) {
	rec, err := transform.Normalize(raw, city)
	if err != nil {
		return nil, err
	}
	flags := transform.QualityFlags(rec)
	if len(flags) > 0 {
		logger.Warn("reading has quality flags", zap.Strings("flags", flags))
	}
	logger.Info("data transformed",
		zap.Time("timestamp", rec.Timestamp),
		zap.Float64("temp_celsius", rec.TempCelsius),
		zap.Float64("temp_f", rec.TempF),
		zap.Float64("windspeed", rec.WindSpeed),
	)

	if err := store.Setup(ctx, p.cfg.DB, logger); err != nil {
		return nil, err
	}

	affected, err := store.Load(ctx, p.cfg.DB, logger, rec)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:        runID,
		City:         city,
		Record:       rec,
		QualityFlags: flags,
		RowsAffected: affected,
	}, nil
}

func (p *Pipeline) startRun(city string) (string, *zap.Logger) {
	runID := p.newRunID()
	return runID, p.logger.With(zap.String("run_id", runID), zap.String("city", city))
}

// finish records the run outcome and tags a failure with its run id.
func (p *Pipeline) finish(logger *zap.Logger, runID string, start time.Time, err error) error {
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("failure", FailureKind(err)).Inc()
		return fmt.Errorf("run %s: %w", runID, err)
	}
	metrics.PipelineRunsTotal.WithLabelValues("success", "").Inc()
	metrics.LastSuccessTimestamp.SetToCurrentTime()
	logger.Info("pipeline completed", zap.Duration("duration", time.Since(start)))
	return nil
}
