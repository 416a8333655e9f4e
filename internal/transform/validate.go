package transform

import (
	"time"

	"github.com/pallapothu30/weather-etl/internal/models"
)

const (
	FlagTempOutOfRange    = "temp_out_of_range"
	FlagWindSpeedUnlikely = "wind_speed_unlikely"
	FlagLatitudeInvalid   = "latitude_invalid"
	FlagLongitudeInvalid  = "longitude_invalid"
	FlagNullIsland        = "null_island"
	FlagTimestampInFuture = "timestamp_in_future"
)

// Open-Meteo reports the current 15-minute slot, which can sit ahead of the wall clock.
const maxClockSkew = 2 * time.Hour

// QualityFlags reports suspicious values in a normalized record. Flags are
// informational; the record is still loaded.
func QualityFlags(rec models.Record) []string {
	var flags []string

	if rec.TempCelsius < -90 || rec.TempCelsius > 60 {
		flags = append(flags, FlagTempOutOfRange)
	}

	if rec.WindSpeed < 0 || rec.WindSpeed > 400 {
		flags = append(flags, FlagWindSpeedUnlikely)
	}

	if rec.Lat < -90 || rec.Lat > 90 {
		flags = append(flags, FlagLatitudeInvalid)
	}
	if rec.Lon < -180 || rec.Lon > 180 {
		flags = append(flags, FlagLongitudeInvalid)
	}
	// 0,0 is what a record with no coordinates defaults to.
	if rec.Lat == 0 && rec.Lon == 0 {
		flags = append(flags, FlagNullIsland)
	}

	if !rec.DataCollectedAt.IsZero() && rec.Timestamp.After(rec.DataCollectedAt.Add(maxClockSkew)) {
		flags = append(flags, FlagTimestampInFuture)
	}

	return flags
}
