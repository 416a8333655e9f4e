package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/models"
)

// DefaultDumpPath is used when no output path is given.
const DefaultDumpPath = "raw_weather_latest.json"

// RawDump is a captured forecast exchange, written for debugging.
type RawDump struct {
	RequestedCity string              `json:"requested_city"`
	CityMetadata  models.CityMetadata `json:"city_metadata"`
	Request       DumpRequest         `json:"request"`
	Response      json.RawMessage     `json:"response"`
	CapturedAt    string              `json:"captured_at"`
}

type DumpRequest struct {
	URL    string            `json:"url"`
	Params map[string]string `json:"params"`
}

// Dump resolves city and captures the raw forecast response without
// decoding it. The database is not touched.
func (x *Extractor) Dump(ctx context.Context, city string) (*RawDump, error) {
	meta, err := x.resolver.Resolve(ctx, city)
	if err != nil {
		return nil, err
	}

	body, result, err := x.fetcher.FetchRaw(ctx, meta.Latitude, meta.Longitude)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: forecast response is not JSON", ErrFetch)
	}

	params := make(map[string]string, len(result.Params))
	for k := range result.Params {
		params[k] = result.Params.Get(k)
	}

	x.logger.Debug("raw payload captured",
		zap.Int("http_status", result.HTTPStatus),
		zap.Int("response_size", result.ResponseSize),
		zap.Duration("duration", result.Duration),
	)

	return &RawDump{
		RequestedCity: city,
		CityMetadata:  meta,
		Request:       DumpRequest{URL: result.URL, Params: params},
		Response:      json.RawMessage(body),
		CapturedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// WriteDump writes d to path as indented JSON.
func WriteDump(path string, d *RawDump) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}

// capturedDump is the read side of RawDump. city_metadata stays loose so
// captures written by older tooling (lat/lon, longi) still load.
type capturedDump struct {
	RequestedCity string          `json:"requested_city"`
	CityMetadata  json.RawMessage `json:"city_metadata"`
	Response      json.RawMessage `json:"response"`
}

// ReadDump loads a dump file and rebuilds the extracted record it captured.
// It returns the requested city alongside the record.
func ReadDump(path string) (models.Extracted, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return models.Extracted{}, "", fmt.Errorf("read dump: %w", err)
	}

	var d capturedDump
	if err := json.Unmarshal(b, &d); err != nil {
		return models.Extracted{}, "", fmt.Errorf("decode dump: %w", err)
	}

	var extracted models.Extracted
	if len(d.CityMetadata) > 0 {
		if err := json.Unmarshal(d.CityMetadata, &extracted); err != nil {
			return models.Extracted{}, "", fmt.Errorf("decode city_metadata: %w", err)
		}
	}

	cw, err := ParseCurrentWeather(d.Response)
	if err != nil {
		return models.Extracted{}, "", err
	}
	extracted.Timestamp = cw.Time
	extracted.Temperature = cw.Temperature
	extracted.WindSpeed = cw.WindSpeed

	return extracted, d.RequestedCity, nil
}
