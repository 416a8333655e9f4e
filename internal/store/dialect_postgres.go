package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// Server-level connections go to the maintenance database.
const postgresMaintenanceDB = "postgres"

type postgresDialect struct{ dollarRebind }

func (postgresDialect) Name() string { return config.DriverPostgres }

func postgresURL(cfg config.Database, withDatabase bool) string {
	name := postgresMaintenanceDB
	if withDatabase {
		name = cfg.Name
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + name,
	}
	return u.String()
}

func (postgresDialect) Open(cfg config.Database, withDatabase bool) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(postgresURL(cfg, withDatabase))
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	return stdlib.OpenDB(*connCfg), nil
}

// CreateDatabase checks pg_database first; CREATE DATABASE has no IF NOT EXISTS.
func (d postgresDialect) CreateDatabase(ctx context.Context, cfg config.Database) error {
	db, err := d.Open(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.Name,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.ExecContext(ctx, "CREATE DATABASE "+d.Quote(cfg.Name))
	return err
}

func (postgresDialect) Quote(ident string) string { return quoteWith('"', ident) }

func (postgresDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
}

func (postgresDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`
}

func (d postgresDialect) RenameTable(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Quote(from), d.Quote(to))
}

func (d postgresDialect) CreateLocationsTable(locations string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    location_id SERIAL PRIMARY KEY,
    city_name VARCHAR(100) NOT NULL,
    country VARCHAR(100),
    admin1 VARCHAR(100),
    lat DOUBLE PRECISION,
    lon DOUBLE PRECISION,
    UNIQUE (city_name, lat, lon)
)`, d.Quote(locations))
}

func (d postgresDialect) CreateWeatherTable(weather, locations string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    weather_id SERIAL PRIMARY KEY,
    location_id INTEGER NOT NULL REFERENCES %s(location_id),
    "timestamp" TIMESTAMP NOT NULL,
    temp_celsius DOUBLE PRECISION,
    temp_f DOUBLE PRECISION,
    windspeed DOUBLE PRECISION,
    data_collected_at TIMESTAMP NOT NULL,
    UNIQUE (location_id, "timestamp")
)`, d.Quote(weather), d.Quote(locations))
}

func (d postgresDialect) UpsertLocation(ctx context.Context, tx *sql.Tx, locations string, rec models.Record) (int64, error) {
	return upsertLocationReturning(ctx, tx, d, locations, rec)
}

func (d postgresDialect) UpsertWeather(weather string) string {
	return d.Rebind(upsertWeatherOnConflict(d, weather))
}

// upsertLocationReturning is shared by the dialects that support
// INSERT ... ON CONFLICT ... RETURNING.
func upsertLocationReturning(ctx context.Context, tx *sql.Tx, d Dialect, locations string, rec models.Record) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, d.Rebind(upsertLocationOnConflict(d, locations)),
		rec.CityName, rec.Country, rec.Admin1, rec.Lat, rec.Lon).Scan(&id)
	return id, err
}

func upsertLocationOnConflict(d Dialect, locations string) string {
	return fmt.Sprintf(`
INSERT INTO %s (city_name, country, admin1, lat, lon)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (city_name, lat, lon) DO UPDATE SET
    country = excluded.country,
    admin1 = excluded.admin1
RETURNING location_id`, d.Quote(locations))
}

func upsertWeatherOnConflict(d Dialect, weather string) string {
	return fmt.Sprintf(`
INSERT INTO %s (location_id, "timestamp", temp_celsius, temp_f, windspeed, data_collected_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (location_id, "timestamp") DO UPDATE SET
    temp_celsius = excluded.temp_celsius,
    temp_f = excluded.temp_f,
    windspeed = excluded.windspeed,
    data_collected_at = excluded.data_collected_at`, d.Quote(weather))
}
