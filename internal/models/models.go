package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

const (
	SourceManual    = "manual"
	SourceGeocoding = "geocoding_api"
)

// CityMetadata is a resolved location. Country, Admin1 and Timezone are empty
// for manual overrides.
type CityMetadata struct {
	CityName  string  `json:"city_name"`
	Country   string  `json:"country,omitempty"`
	Admin1    string  `json:"admin1,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`
}

// Extracted is one raw reading merged with its location metadata. Nil fields
// are absent in the upstream payload.
type Extracted struct {
	CityName    *string  `json:"city_name,omitempty"`
	Country     *string  `json:"country,omitempty"`
	Admin1      *string  `json:"admin1,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Timestamp   *string  `json:"timestamp,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	WindSpeed   *float64 `json:"windspeed,omitempty"`
}

// UnmarshalJSON accepts the coordinate spellings used by older captures:
// lat/latitude and lon/longi/longitude.
func (e *Extracted) UnmarshalJSON(data []byte) error {
	type plain Extracted
	var aux struct {
		plain
		Lat   *float64 `json:"lat"`
		Lon   *float64 `json:"lon"`
		Longi *float64 `json:"longi"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Extracted(aux.plain)
	if aux.Lat != nil {
		e.Latitude = aux.Lat
	}
	switch {
	case aux.Lon != nil:
		e.Longitude = aux.Lon
	case aux.Longi != nil:
		e.Longitude = aux.Longi
	}
	return nil
}

// Record is the normalized row handed to the loader. Field order is the
// output schema: city_name, country, admin1, lat, lon, timestamp,
// temp_celsius, temp_f, windspeed, data_collected_at.
type Record struct {
	CityName        string
	Country         sql.NullString
	Admin1          sql.NullString
	Lat             float64
	Lon             float64
	Timestamp       time.Time
	TempCelsius     float64
	TempF           float64
	WindSpeed       float64
	DataCollectedAt time.Time
}

type Location struct {
	ID       int64
	CityName string
	Country  sql.NullString
	Admin1   sql.NullString
	Lat      float64
	Lon      float64
}

type Reading struct {
	ID              int64
	LocationID      int64
	Timestamp       time.Time
	TempCelsius     sql.NullFloat64
	TempF           sql.NullFloat64
	WindSpeed       sql.NullFloat64
	DataCollectedAt time.Time
}

func StringPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }

// StoredReading is a loaded reading joined with its location.
type StoredReading struct {
	Location Location
	Reading  Reading
}
