package ingest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// Extractor runs the resolver and fetcher for one city.
type Extractor struct {
	resolver *Resolver
	fetcher  *Fetcher
	logger   *zap.Logger
}

func NewExtractor(cfg *config.Config, client *http.Client, logger *zap.Logger) *Extractor {
	return &Extractor{
		resolver: NewResolver(cfg, client, logger),
		fetcher:  NewFetcher(cfg, client, logger),
		logger:   logger,
	}
}

// Extract resolves city, fetches its current weather and merges both into one record.
func (x *Extractor) Extract(ctx context.Context, city string) (models.Extracted, error) {
	meta, err := x.resolver.Resolve(ctx, city)
	if err != nil {
		return models.Extracted{}, err
	}

	cw, err := x.fetcher.FetchCurrent(ctx, meta)
	if err != nil {
		return models.Extracted{}, err
	}

	extracted := Merge(meta, cw)
	x.logger.Info("data extracted",
		zap.String("city_name", meta.CityName),
		zap.String("source", meta.Source),
		zap.Float64("latitude", meta.Latitude),
		zap.Float64("longitude", meta.Longitude),
	)
	return extracted, nil
}

// Merge combines location metadata with a current-weather block.
func Merge(meta models.CityMetadata, cw CurrentWeather) models.Extracted {
	return models.Extracted{
		CityName:    models.StringPtr(meta.CityName),
		Country:     optional(meta.Country),
		Admin1:      optional(meta.Admin1),
		Timezone:    optional(meta.Timezone),
		Latitude:    models.FloatPtr(meta.Latitude),
		Longitude:   models.FloatPtr(meta.Longitude),
		Timestamp:   cw.Time,
		Temperature: cw.Temperature,
		WindSpeed:   cw.WindSpeed,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
