package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// Resolver turns a city name into coordinates, either from the configured
// override or from the geocoding API.
type Resolver struct {
	client   *http.Client
	url      string
	override *config.Coordinates
	logger   *zap.Logger
}

func NewResolver(cfg *config.Config, client *http.Client, logger *zap.Logger) *Resolver {
	return &Resolver{
		client:   client,
		url:      cfg.GeocodingURL,
		override: cfg.Override,
		logger:   logger,
	}
}

type geocodingResponse struct {
	Results []geocodingResult `json:"results"`
}

type geocodingResult struct {
	Name      string   `json:"name"`
	Country   string   `json:"country"`
	Admin1    string   `json:"admin1"`
	Timezone  string   `json:"timezone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Resolve returns metadata for city. All failures wrap ErrResolution.
func (r *Resolver) Resolve(ctx context.Context, city string) (models.CityMetadata, error) {
	if r.override != nil {
		return models.CityMetadata{
			CityName:  city,
			Latitude:  r.override.Latitude,
			Longitude: r.override.Longitude,
			Source:    models.SourceManual,
		}, nil
	}

	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")

	body, _, err := getJSON(ctx, r.client, endpointGeocoding, r.url, params)
	if err != nil {
		r.logger.Error("geocoding API request failed", zap.String("city", city), zap.Error(err))
		return models.CityMetadata{}, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	var payload geocodingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.CityMetadata{}, fmt.Errorf("%w: decode geocoding response: %w", ErrResolution, err)
	}
	if len(payload.Results) == 0 {
		return models.CityMetadata{}, fmt.Errorf("%w: no geocoding result found for city %q", ErrResolution, city)
	}

	top := payload.Results[0]
	if top.Latitude == nil || top.Longitude == nil {
		return models.CityMetadata{}, fmt.Errorf("%w: geocoding response missing latitude/longitude", ErrResolution)
	}

	name := top.Name
	if name == "" {
		name = city
	}
	return models.CityMetadata{
		CityName:  name,
		Country:   top.Country,
		Admin1:    top.Admin1,
		Timezone:  top.Timezone,
		Latitude:  *top.Latitude,
		Longitude: *top.Longitude,
		Source:    models.SourceGeocoding,
	}, nil
}
