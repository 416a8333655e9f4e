package main

import (
	"database/sql"
	"encoding/json"
	"io"
	"time"

	"github.com/pallapothu30/weather-etl/internal/models"
)

type locationView struct {
	LocationID int64   `json:"location_id"`
	CityName   string  `json:"city_name"`
	Country    *string `json:"country"`
	Admin1     *string `json:"admin1"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

type readingView struct {
	locationView
	WeatherID       int64     `json:"weather_id"`
	Timestamp       time.Time `json:"timestamp"`
	TempCelsius     *float64  `json:"temp_celsius"`
	TempF           *float64  `json:"temp_f"`
	WindSpeed       *float64  `json:"windspeed"`
	DataCollectedAt time.Time `json:"data_collected_at"`
}

func toLocationView(l models.Location) locationView {
	return locationView{
		LocationID: l.ID,
		CityName:   l.CityName,
		Country:    nullableString(l.Country),
		Admin1:     nullableString(l.Admin1),
		Lat:        l.Lat,
		Lon:        l.Lon,
	}
}

func locationViews(locations []models.Location) []locationView {
	out := make([]locationView, 0, len(locations))
	for _, l := range locations {
		out = append(out, toLocationView(l))
	}
	return out
}

func readingViews(readings []models.StoredReading) []readingView {
	out := make([]readingView, 0, len(readings))
	for _, r := range readings {
		out = append(out, readingView{
			locationView:    toLocationView(r.Location),
			WeatherID:       r.Reading.ID,
			Timestamp:       r.Reading.Timestamp.UTC(),
			TempCelsius:     nullableFloat(r.Reading.TempCelsius),
			TempF:           nullableFloat(r.Reading.TempF),
			WindSpeed:       nullableFloat(r.Reading.WindSpeed),
			DataCollectedAt: r.Reading.DataCollectedAt.UTC(),
		})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullableFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}
