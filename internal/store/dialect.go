package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

// Dialect isolates the SQL that differs between the supported databases.
// Generic queries are written with ? placeholders and passed through Rebind.
type Dialect interface {
	Name() string

	// Open returns a handle to the database server, or to cfg.Name when
	// withDatabase is set.
	Open(cfg config.Database, withDatabase bool) (*sql.DB, error)

	// CreateDatabase creates cfg.Name if it does not exist, using its own
	// server-level connection.
	CreateDatabase(ctx context.Context, cfg config.Database) error

	Quote(ident string) string
	Rebind(query string) string

	// TableExistsQuery counts tables named by its single argument in the current database.
	TableExistsQuery() string
	// ColumnsQuery lists column names of the table named by its single argument.
	ColumnsQuery() string
	RenameTable(from, to string) string

	CreateLocationsTable(locations string) string
	CreateWeatherTable(weather, locations string) string

	// UpsertLocation inserts or updates a location row and returns its id,
	// whether the row was new or already present.
	UpsertLocation(ctx context.Context, tx *sql.Tx, locations string, rec models.Record) (int64, error)
	UpsertWeather(weather string) string
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return mysqlDialect{}, nil
	case config.DriverPostgres:
		return postgresDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// questionRebind leaves ? placeholders untouched.
type questionRebind struct{}

func (questionRebind) Rebind(query string) string { return query }

// dollarRebind rewrites ? placeholders to $1, $2, ... outside quoted text.
type dollarRebind struct{}

func (dollarRebind) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func quoteWith(q byte, ident string) string {
	s := string(q)
	return s + strings.ReplaceAll(ident, s, s+s) + s
}
