package transform

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pallapothu30/weather-etl/internal/models"
)

var ErrTransform = errors.New("transform failed")

const (
	defaultTempCelsius = 0.0
	defaultTempF       = 32.0
	defaultWindSpeed   = 0.0
)

// Timestamp layouts accepted for the observation time. Open-Meteo sends
// minute precision without a zone; zone-less values are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var nowUTC = func() time.Time { return time.Now().UTC() }

// CelsiusToFahrenheit is the only source of temp_f.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

// Normalize reshapes one extracted record into the load schema. cityName is
// used when the record carries no city. A missing or unparseable timestamp is
// an ErrTransform; every other absent field gets a default.
func Normalize(raw models.Extracted, cityName string) (models.Record, error) {
	if raw.Timestamp == nil || strings.TrimSpace(*raw.Timestamp) == "" {
		return models.Record{}, fmt.Errorf("%w: missing timestamp in extracted data", ErrTransform)
	}
	ts, err := ParseTimestamp(*raw.Timestamp)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrTransform, err)
	}

	rec := models.Record{
		Timestamp:   ts,
		TempCelsius: defaultTempCelsius,
		TempF:       defaultTempF,
		WindSpeed:   defaultWindSpeed,
	}

	if raw.Temperature != nil {
		rec.TempCelsius = *raw.Temperature
		rec.TempF = CelsiusToFahrenheit(rec.TempCelsius)
	}
	if raw.WindSpeed != nil {
		rec.WindSpeed = *raw.WindSpeed
	}

	rec.CityName = cityName
	if raw.CityName != nil && strings.TrimSpace(*raw.CityName) != "" {
		rec.CityName = *raw.CityName
	}

	rec.Country = nullString(raw.Country)
	rec.Admin1 = nullString(raw.Admin1)
	if raw.Latitude != nil {
		rec.Lat = *raw.Latitude
	}
	if raw.Longitude != nil {
		rec.Lon = *raw.Longitude
	}

	rec.DataCollectedAt = nowUTC()
	return rec, nil
}

// ParseTimestamp parses an observation time, returning it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
