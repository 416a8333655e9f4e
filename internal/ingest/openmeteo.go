package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// Fetcher retrieves the current weather for a coordinate pair.
type Fetcher struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

func NewFetcher(cfg *config.Config, client *http.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		url:    cfg.WeatherURL,
		logger: logger,
	}
}

// CurrentWeather is the current_weather block of a forecast response.
type CurrentWeather struct {
	Time        *string  `json:"time"`
	Temperature *float64 `json:"temperature"`
	WindSpeed   *float64 `json:"windspeed"`
}

type forecastResponse struct {
	CurrentWeather json.RawMessage `json:"current_weather"`
}

func (f *Fetcher) params(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("current_weather", "true")
	return params
}

// FetchRaw returns the undecoded forecast body for lat/lon.
func (f *Fetcher) FetchRaw(ctx context.Context, lat, lon float64) ([]byte, *FetchResult, error) {
	body, result, err := getJSON(ctx, f.client, endpointForecast, f.url, f.params(lat, lon))
	if err != nil {
		f.logger.Error("forecast API request failed",
			zap.Float64("latitude", lat), zap.Float64("longitude", lon), zap.Error(err))
		return nil, result, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return body, result, nil
}

// FetchCurrent returns the current_weather block for meta. All failures wrap ErrFetch.
func (f *Fetcher) FetchCurrent(ctx context.Context, meta models.CityMetadata) (CurrentWeather, error) {
	body, _, err := f.FetchRaw(ctx, meta.Latitude, meta.Longitude)
	if err != nil {
		return CurrentWeather{}, err
	}
	return ParseCurrentWeather(body)
}

// ParseCurrentWeather decodes a forecast body and requires a non-empty
// current_weather object.
func ParseCurrentWeather(body []byte) (CurrentWeather, error) {
	var payload forecastResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return CurrentWeather{}, fmt.Errorf("%w: decode forecast response: %w", ErrFetch, err)
	}

	raw := bytes.TrimSpace(payload.CurrentWeather)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}")) {
		return CurrentWeather{}, fmt.Errorf("%w: response did not contain current_weather", ErrFetch)
	}

	var cw CurrentWeather
	if err := json.Unmarshal(raw, &cw); err != nil {
		return CurrentWeather{}, fmt.Errorf("%w: decode current_weather: %w", ErrFetch, err)
	}
	return cw, nil
}
