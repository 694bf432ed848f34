package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/proxyboot/internal/constants"
	_ "modernc.org/sqlite"
)

// Dialect holds the SQLite specific SQL.
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

// GetPlaceholder returns the positional placeholder.
func (s *Dialect) GetPlaceholder() string {
	return "?"
}

// ConvertTimeToStorage stores times as RFC3339Nano text in UTC.
func (s *Dialect) ConvertTimeToStorage(t time.Time) interface{} {
	return t.UTC().Format(time.RFC3339Nano)
}

// ConvertTimeFromStorage parses a stored RFC3339Nano value. Unparseable values
// yield the zero time.
func (s *Dialect) ConvertTimeFromStorage(val interface{}) time.Time {
	var str string
	switch v := val.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Connect opens the database with a single writer connection.
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)
	return db, nil
}

// GetEnsureStatements returns the DDL for the history table and its index.
func (s *Dialect) GetEnsureStatements(syncRuns string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	schema_path TEXT NOT NULL,
	outcome TEXT NOT NULL,
	exit_code INTEGER NOT NULL,
	failure_kind TEXT NULL,
	stdout TEXT NOT NULL DEFAULT '',
	stderr TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
)`, syncRuns),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_started_at_idx ON %s (started_at)", syncRuns, syncRuns),
	}
}

func (s *Dialect) GetDriverName() string {
	return "sqlite"
}
