package postgresql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/proxyboot/internal/constants"
)

// Dialect holds the PostgreSQL specific SQL.
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns $index.
func (p *Dialect) GetPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// ConvertTimeToStorage keeps the native time; the column is TIMESTAMPTZ.
func (p *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC()
}

// ConvertTimeFromStorage normalizes a scanned timestamp to UTC.
func (p *Dialect) ConvertTimeFromStorage(val interface{}) time.Time {
	switch t := val.(type) {
	case *time.Time:
		if t != nil {
			return t.UTC()
		}
	case time.Time:
		return t.UTC()
	}
	return time.Time{}
}

// Connect opens a small pool; the history store writes once per boot.
func (p *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	db.SetMaxOpenConns(constants.DefaultPostgresMaxConnections)
	db.SetMaxIdleConns(constants.DefaultPostgresMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLifetime)
	db.SetConnMaxIdleTime(constants.DefaultMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

// GetEnsureStatements returns the DDL for the history table and its index.
func (p *Dialect) GetEnsureStatements(syncRuns string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	schema_path TEXT NOT NULL,
	outcome TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	failure_kind TEXT NULL,
	stdout TEXT NOT NULL DEFAULT '',
	stderr TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`, syncRuns),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_started_at_idx ON %s (started_at)", syncRuns, syncRuns),
	}
}

func (p *Dialect) GetDriverName() string {
	return "postgresql"
}
