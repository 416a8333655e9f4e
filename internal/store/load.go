package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/metrics"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// LoadRecord upserts the record's location and its reading in one
// transaction and returns the driver-reported rows affected by the reading
// upsert. Re-loading the same (location, timestamp) overwrites the values.
// Any failure rolls back both statements.
func (s *Store) LoadRecord(ctx context.Context, rec models.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrLoad, err)
	}
	defer tx.Rollback()

	locationID, err := s.dialect.UpsertLocation(ctx, tx, s.tables.Locations, rec)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert location %q: %w", ErrLoad, rec.CityName, err)
	}

	res, err := tx.ExecContext(ctx, s.dialect.UpsertWeather(s.tables.Weather),
		locationID,
		rec.Timestamp.UTC(),
		rec.TempCelsius,
		rec.TempF,
		rec.WindSpeed,
		rec.DataCollectedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert reading: %w", ErrLoad, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", ErrLoad, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrLoad, err)
	}

	metrics.ReadingsLoaded.Inc()
	metrics.LoadRowsAffected.Set(float64(affected))
	s.logger.Info("loaded reading",
		zap.String("city", rec.CityName),
		zap.Int64("location_id", locationID),
		zap.Time("timestamp", rec.Timestamp),
		zap.Int64("rows_affected", affected),
	)
	return affected, nil
}
