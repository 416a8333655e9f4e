package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/pallapothu30/weather-etl/internal/models"
)

func TestReadingViewsJSON(t *testing.T) {
	readings := []models.StoredReading{{
		Location: models.Location{
			ID:       3,
			CityName: "Testville",
			Country:  sql.NullString{String: "Testland", Valid: true},
			Lat:      10,
			Lon:      20,
		},
		Reading: models.Reading{
			ID:              7,
			LocationID:      3,
			Timestamp:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			TempCelsius:     sql.NullFloat64{Float64: 20, Valid: true},
			TempF:           sql.NullFloat64{Float64: 68, Valid: true},
			DataCollectedAt: time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
		},
	}}

	var buf bytes.Buffer
	if err := writeJSON(&buf, readingViews(readings)); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	row := got[0]
	if row["city_name"] != "Testville" || row["country"] != "Testland" || row["admin1"] != nil {
		t.Errorf("location fields = %v", row)
	}
	if row["location_id"] != float64(3) || row["weather_id"] != float64(7) {
		t.Errorf("ids = %v, %v", row["location_id"], row["weather_id"])
	}
	if row["temp_f"] != float64(68) || row["windspeed"] != nil {
		t.Errorf("values = %v, %v", row["temp_f"], row["windspeed"])
	}
	if row["timestamp"] != "2024-01-01T00:00:00Z" {
		t.Errorf("timestamp = %v", row["timestamp"])
	}
}

func TestLocationViewsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, locationViews(nil)); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("output = %q, want empty array", got)
	}
}
