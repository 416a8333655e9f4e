package store

import (
	"context"
	"fmt"

	"github.com/pallapothu30/weather-etl/internal/models"
)

func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT location_id, city_name, country, admin1, lat, lon
		FROM %s
		ORDER BY location_id`, s.dialect.Quote(s.tables.Locations)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.CityName, &l.Country, &l.Admin1, &l.Lat, &l.Lon); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// RecentReadings returns up to limit readings for a city, newest first,
// across every location row with that name.
func (s *Store) RecentReadings(ctx context.Context, city string, limit int) ([]models.StoredReading, error) {
	if limit <= 0 {
		limit = 1
	}
	ts := s.dialect.Quote("timestamp")
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT l.location_id, l.city_name, l.country, l.admin1, l.lat, l.lon,
		       w.weather_id, w.%s, w.temp_celsius, w.temp_f, w.windspeed, w.data_collected_at
		FROM %s w
		JOIN %s l ON l.location_id = w.location_id
		WHERE l.city_name = ?
		ORDER BY w.%s DESC, w.weather_id DESC
		LIMIT ?`,
		ts, s.dialect.Quote(s.tables.Weather), s.dialect.Quote(s.tables.Locations), ts))

	rows, err := s.db.QueryContext(ctx, query, city, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredReading
	for rows.Next() {
		var r models.StoredReading
		if err := rows.Scan(
			&r.Location.ID, &r.Location.CityName, &r.Location.Country, &r.Location.Admin1, &r.Location.Lat, &r.Location.Lon,
			&r.Reading.ID, &r.Reading.Timestamp, &r.Reading.TempCelsius, &r.Reading.TempF, &r.Reading.WindSpeed, &r.Reading.DataCollectedAt,
		); err != nil {
			return nil, err
		}
		r.Reading.LocationID = r.Location.ID
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRows returns the number of rows in the locations and weather tables.
func (s *Store) CountRows(ctx context.Context) (locations, readings int64, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.Quote(s.tables.Locations)).Scan(&locations); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.Quote(s.tables.Weather)).Scan(&readings); err != nil {
		return 0, 0, err
	}
	return locations, readings, nil
}
