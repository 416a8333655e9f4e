package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

var (
	ErrSchemaSetup = errors.New("schema setup failed")
	ErrLoad        = errors.New("load failed")
)

// Tables names the two normalized tables.
type Tables struct {
	Locations string
	Weather   string
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  Tables
	logger  *zap.Logger
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect, tables Tables, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		tables:  tables,
		logger:  logger,
		now:     time.Now,
	}
}

// Open connects to the configured database and checks it is reachable.
func Open(ctx context.Context, cfg config.Database, logger *zap.Logger) (*Store, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := d.Open(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("open %s database %q: %w", d.Name(), cfg.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s database %q: %w", d.Name(), cfg.Name, err)
	}
	return New(db, d, Tables{Locations: cfg.LocationTable, Weather: cfg.WeatherTable}, logger), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Setup makes sure the database exists and the schema is normalized, using
// a server-level connection followed by a database-level one. Every failure
// is an ErrSchemaSetup.
func Setup(ctx context.Context, cfg config.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaSetup, err)
	}
	if err := d.CreateDatabase(ctx, cfg); err != nil {
		return fmt.Errorf("%w: ensure database %q: %w", ErrSchemaSetup, cfg.Name, err)
	}
	logger.Debug("database ready", zap.String("driver", d.Name()), zap.String("database", cfg.Name))

	s, err := Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaSetup, err)
	}
	defer s.Close()

	return s.Migrate(ctx)
}

// Load opens a fresh connection and upserts one record. Every failure is an
// ErrLoad.
func Load(ctx context.Context, cfg config.Database, logger *zap.Logger, rec models.Record) (int64, error) {
	s, err := Open(ctx, cfg, logger)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer s.Close()

	return s.LoadRecord(ctx, rec)
}
