package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// SQLite keeps each database in <SQLiteDir>/<Name>.db; the directory plays
// the part of the server.
type sqliteDialect struct{ questionRebind }

func (sqliteDialect) Name() string { return config.DriverSQLite }

func sqlitePath(cfg config.Database) string {
	return filepath.Join(cfg.SQLiteDir, cfg.Name+".db")
}

func sqliteDSN(cfg config.Database) string {
	return "file:" + sqlitePath(cfg) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (sqliteDialect) Open(cfg config.Database, withDatabase bool) (*sql.DB, error) {
	if !withDatabase {
		return nil, fmt.Errorf("sqlite has no server-level connection")
	}
	return sql.Open("sqlite", sqliteDSN(cfg))
}

func (sqliteDialect) CreateDatabase(_ context.Context, cfg config.Database) error {
	if err := os.MkdirAll(cfg.SQLiteDir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}

func (sqliteDialect) Quote(ident string) string { return quoteWith('"', ident) }

func (sqliteDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (sqliteDialect) ColumnsQuery() string {
	return `SELECT name FROM pragma_table_info(?)`
}

func (d sqliteDialect) RenameTable(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.Quote(from), d.Quote(to))
}

func (d sqliteDialect) CreateLocationsTable(locations string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    location_id INTEGER PRIMARY KEY AUTOINCREMENT,
    city_name TEXT NOT NULL,
    country TEXT,
    admin1 TEXT,
    lat REAL,
    lon REAL,
    UNIQUE (city_name, lat, lon)
)`, d.Quote(locations))
}

func (d sqliteDialect) CreateWeatherTable(weather, locations string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    weather_id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id INTEGER NOT NULL REFERENCES %s(location_id),
    "timestamp" DATETIME NOT NULL,
    temp_celsius REAL,
    temp_f REAL,
    windspeed REAL,
    data_collected_at DATETIME NOT NULL,
    UNIQUE (location_id, "timestamp")
)`, d.Quote(weather), d.Quote(locations))
}

func (d sqliteDialect) UpsertLocation(ctx context.Context, tx *sql.Tx, locations string, rec models.Record) (int64, error) {
	return upsertLocationReturning(ctx, tx, d, locations, rec)
}

func (d sqliteDialect) UpsertWeather(weather string) string {
	return upsertWeatherOnConflict(d, weather)
}
