package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

type mysqlDialect struct{ questionRebind }

func (mysqlDialect) Name() string { return config.DriverMySQL }

func mysqlConfig(cfg config.Database, withDatabase bool) *mysql.Config {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.ParseTime = true
	c.Loc = time.UTC
	if withDatabase {
		c.DBName = cfg.Name
	}
	return c
}

func (mysqlDialect) Open(cfg config.Database, withDatabase bool) (*sql.DB, error) {
	connector, err := mysql.NewConnector(mysqlConfig(cfg, withDatabase))
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (d mysqlDialect) CreateDatabase(ctx context.Context, cfg config.Database) error {
	db, err := d.Open(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+d.Quote(cfg.Name))
	return err
}

func (mysqlDialect) Quote(ident string) string { return quoteWith('`', ident) }

func (mysqlDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`
}

func (mysqlDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`
}

func (d mysqlDialect) RenameTable(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.Quote(from), d.Quote(to))
}

func (d mysqlDialect) CreateLocationsTable(locations string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    location_id INT AUTO_INCREMENT PRIMARY KEY,
    city_name VARCHAR(100) NOT NULL,
    country VARCHAR(100),
    admin1 VARCHAR(100),
    lat DOUBLE,
    lon DOUBLE,
    UNIQUE KEY uq_city_coords (city_name, lat, lon)
)`, d.Quote(locations))
}

func (d mysqlDialect) CreateWeatherTable(weather, locations string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    weather_id INT AUTO_INCREMENT PRIMARY KEY,
    location_id INT NOT NULL,
    `+"`timestamp`"+` DATETIME NOT NULL,
    temp_celsius DOUBLE,
    temp_f DOUBLE,
    windspeed DOUBLE,
    data_collected_at DATETIME NOT NULL,
    FOREIGN KEY (location_id) REFERENCES %s(location_id),
    UNIQUE KEY uq_loc_time (location_id, `+"`timestamp`"+`)
)`, d.Quote(weather), d.Quote(locations))
}

// upsertLocation relies on LAST_INSERT_ID(expr): on a duplicate key the
// existing id becomes the statement's insert id.
func (d mysqlDialect) upsertLocation(locations string) string {
	return fmt.Sprintf(`
INSERT INTO %s (city_name, country, admin1, lat, lon)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    country = VALUES(country),
    admin1 = VALUES(admin1),
    location_id = LAST_INSERT_ID(location_id)`, d.Quote(locations))
}

func (d mysqlDialect) UpsertLocation(ctx context.Context, tx *sql.Tx, locations string, rec models.Record) (int64, error) {
	res, err := tx.ExecContext(ctx, d.upsertLocation(locations),
		rec.CityName, rec.Country, rec.Admin1, rec.Lat, rec.Lon)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d mysqlDialect) UpsertWeather(weather string) string {
	return fmt.Sprintf(`
INSERT INTO %s (location_id, `+"`timestamp`"+`, temp_celsius, temp_f, windspeed, data_collected_at)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    temp_celsius = VALUES(temp_celsius),
    temp_f = VALUES(temp_f),
    windspeed = VALUES(windspeed),
    data_collected_at = VALUES(data_collected_at)`, d.Quote(weather))
}
