package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultCityName     = "Vijayawada"
	DefaultWeatherURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultHTTPTimeout  = 30 * time.Second

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Coordinates is a manual latitude/longitude override.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Database holds connection and naming settings for the target store.
type Database struct {
	Driver        string
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SQLiteDir     string
	LocationTable string
	WeatherTable  string
}

// Config is built once at process start and passed to every component.
type Config struct {
	CityName     string
	Override     *Coordinates
	WeatherURL   string
	GeocodingURL string
	HTTPTimeout  time.Duration

	DB Database

	PushgatewayURL string
	LogLevel       string
}

// ErrInvalid marks configuration that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Load reads configuration from environment variables (optionally .env).
// Every error is an ErrInvalid.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg, err := fromEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		CityName:       getenvDefault("CITY_NAME", DefaultCityName),
		WeatherURL:     getenvDefault("WEATHER_API_URL", DefaultWeatherURL),
		GeocodingURL:   getenvDefault("GEOCODING_API_URL", DefaultGeocodingURL),
		HTTPTimeout:    DefaultHTTPTimeout,
		PushgatewayURL: strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL")),
		LogLevel:       getenvDefault("LOG_LEVEL", "INFO"),
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	override, err := loadOverride()
	if err != nil {
		return nil, err
	}
	cfg.Override = override

	db, err := loadDatabase()
	if err != nil {
		return nil, err
	}
	cfg.DB = db

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadOverride() (*Coordinates, error) {
	latStr := strings.TrimSpace(os.Getenv("LATITUDE"))
	lonStr := strings.TrimSpace(os.Getenv("LONGITUDE"))
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.New("LATITUDE and LONGITUDE must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LATITUDE: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LONGITUDE: %w", err)
	}
	return &Coordinates{Latitude: lat, Longitude: lon}, nil
}

func loadDatabase() (Database, error) {
	db := Database{
		Driver:        strings.ToLower(getenvDefault("DB_DRIVER", DriverMySQL)),
		Host:          getenvFirst("localhost", "DB_HOST", "MYSQL_HOST"),
		User:          getenvFirst("root", "DB_USER", "MYSQL_USER"),
		Password:      getenvFirst("", "DB_PASSWORD", "MYSQL_PASSWORD"),
		Name:          getenvFirst("weather_db", "DB_NAME", "MYSQL_DATABASE"),
		SQLiteDir:     getenvDefault("SQLITE_DIR", "data"),
		LocationTable: getenvDefault("LOCATION_TABLE", "locations"),
		WeatherTable:  getenvDefault("WEATHER_TABLE", "weather_data"),
	}

	db.Port = defaultPort(db.Driver)
	if v := getenvFirst("", "DB_PORT", "MYSQL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return db, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		db.Port = port
	}
	return db, nil
}

func defaultPort(driver string) int {
	switch driver {
	case DriverPostgres:
		return 5432
	case DriverSQLite:
		return 0
	default:
		return 3306
	}
}

// Validate checks values that are later interpolated into SQL or used to dial.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CityName) == "" {
		return errors.New("CITY_NAME must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.Override != nil {
		if c.Override.Latitude < -90 || c.Override.Latitude > 90 {
			return fmt.Errorf("LATITUDE out of range: %v", c.Override.Latitude)
		}
		if c.Override.Longitude < -180 || c.Override.Longitude > 180 {
			return fmt.Errorf("LONGITUDE out of range: %v", c.Override.Longitude)
		}
	}

	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres:
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			return fmt.Errorf("DB_PORT out of range: %d", c.DB.Port)
		}
	case DriverSQLite:
		if c.DB.SQLiteDir == "" {
			return errors.New("SQLITE_DIR must not be empty")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want mysql, postgres or sqlite)", c.DB.Driver)
	}

	for key, name := range map[string]string{
		"DB_NAME":        c.DB.Name,
		"LOCATION_TABLE": c.DB.LocationTable,
		"WEATHER_TABLE":  c.DB.WeatherTable,
	} {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("%s %q is not a valid identifier", key, name)
		}
	}
	if c.DB.LocationTable == c.DB.WeatherTable {
		return errors.New("LOCATION_TABLE and WEATHER_TABLE must differ")
	}
	return nil
}

// ResolveCity returns the explicit city when given, otherwise the configured default.
func (c *Config) ResolveCity(city string) string {
	if s := strings.TrimSpace(city); s != "" {
		return s
	}
	return c.CityName
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getenvFirst returns the first non-empty variable among keys.
func getenvFirst(def string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}
