package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/metrics"
)

const legacySuffixLayout = "20060102_150405"

// schemaStep is one idempotent step of bringing the schema to its
// normalized shape. Steps run in order on a single connection.
type schemaStep struct {
	Description string
	Run         func(ctx context.Context, conn *sql.Conn) error
}

func (s *Store) schemaSteps() []schemaStep {
	return []schemaStep{
		{
			Description: "create " + s.tables.Locations,
			Run: func(ctx context.Context, conn *sql.Conn) error {
				_, err := conn.ExecContext(ctx, s.dialect.CreateLocationsTable(s.tables.Locations))
				return err
			},
		},
		{
			Description: "move aside denormalized " + s.tables.Weather,
			Run:         s.renameLegacyWeather,
		},
		{
			Description: "create " + s.tables.Weather,
			Run: func(ctx context.Context, conn *sql.Conn) error {
				_, err := conn.ExecContext(ctx, s.dialect.CreateWeatherTable(s.tables.Weather, s.tables.Locations))
				return err
			},
		},
		{
			Description: "verify " + s.tables.Weather + " references " + s.tables.Locations,
			Run: func(ctx context.Context, conn *sql.Conn) error {
				cols, err := s.columns(ctx, conn, s.tables.Weather)
				if err != nil {
					return err
				}
				if !cols["location_id"] {
					return fmt.Errorf("table %q has no location_id column after migration", s.tables.Weather)
				}
				return nil
			},
		},
	}
}

// Migrate brings the schema to its normalized shape. It is safe to run on
// every start. A weather table without location_id is renamed to
// <table>_legacy_<YYYYMMDD_HHMMSS> and replaced; its rows are not copied.
func (s *Store) Migrate(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", ErrSchemaSetup, err)
	}
	defer conn.Close()

	for _, step := range s.schemaSteps() {
		s.logger.Debug("schema: applying", zap.String("step", step.Description))
		if err := step.Run(ctx, conn); err != nil {
			s.logger.Error("schema step failed", zap.String("step", step.Description), zap.Error(err))
			return fmt.Errorf("%w: %s: %w", ErrSchemaSetup, step.Description, err)
		}
	}

	s.logger.Info("schema ready",
		zap.String("locations_table", s.tables.Locations),
		zap.String("weather_table", s.tables.Weather),
	)
	return nil
}

func (s *Store) renameLegacyWeather(ctx context.Context, conn *sql.Conn) error {
	exists, err := s.tableExists(ctx, conn, s.tables.Weather)
	if err != nil || !exists {
		return err
	}
	cols, err := s.columns(ctx, conn, s.tables.Weather)
	if err != nil {
		return err
	}
	if cols["location_id"] {
		return nil
	}

	// Stamped in UTC, like every stored time.
	backup := s.tables.Weather + "_legacy_" + s.now().UTC().Format(legacySuffixLayout)
	if _, err := conn.ExecContext(ctx, s.dialect.RenameTable(s.tables.Weather, backup)); err != nil {
		return fmt.Errorf("rename %q to %q: %w", s.tables.Weather, backup, err)
	}

	s.logger.Warn("found denormalized weather table; renamed it and created a fresh normalized table",
		zap.String("table", s.tables.Weather),
		zap.String("backup_table", backup),
	)
	metrics.LegacyTablesMigrated.Inc()
	return nil
}

func (s *Store) tableExists(ctx context.Context, conn *sql.Conn, table string) (bool, error) {
	var n int
	if err := conn.QueryRowContext(ctx, s.dialect.TableExistsQuery(), table).Scan(&n); err != nil {
		return false, fmt.Errorf("check table %q: %w", table, err)
	}
	return n > 0, nil
}

// columns returns the lower-cased column names of table.
func (s *Store) columns(ctx context.Context, conn *sql.Conn, table string) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, s.dialect.ColumnsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}
