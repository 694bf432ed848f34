package connector

import (
	"context"
	"database/sql"
	"time"
)

// SyncRun is one row of the schema sync history table.
type SyncRun struct {
	ID          int64
	SchemaPath  string
	Outcome     string
	ExitCode    int
	FailureKind string // empty when the sync succeeded
	Stdout      string
	Stderr      string
	StartedAt   time.Time
	DurationMS  int64
}

// TableNames holds the (already validated) table identifiers.
type TableNames struct {
	SyncRuns string
}

// Connector is implemented by each database backend.
type Connector interface {
	Connect() (*sql.DB, error)
	Validate() error
	Load(config map[string]interface{}) error
	Ensure(th TableNames) error
	RecordSync(ctx context.Context, th TableNames, run SyncRun) (int64, error)
	// ListSyncs returns the newest runs first. limit <= 0 returns every row.
	ListSyncs(ctx context.Context, th TableNames, limit int) ([]SyncRun, error)
	Close() error
}
