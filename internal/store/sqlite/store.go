package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/retry"
	"github.com/loykin/proxyboot/internal/store/connector"
)

// Store is the SQLite backend of the sync history.
type Store struct {
	db      *sql.DB
	dialect *Dialect
	DSN     string
}

func NewStore() *Store {
	return &Store{dialect: NewDialect()}
}

var _ connector.Connector = (*Store)(nil)

// Load accepts either "dsn" or "path".
func (s *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		s.DSN = dsn
		return nil
	}
	if path, ok := config["path"].(string); ok && path != "" {
		s.DSN = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&%s", path, busyTimeoutMS, foreignKeysParam)
	}
	return nil
}

// Connect opens the database. An unset DSN means an in-memory database.
func (s *Store) Connect() (*sql.DB, error) {
	if s.DSN == "" {
		s.DSN = ":memory:"
	}
	db, err := s.dialect.Connect(s.DSN)
	if err != nil {
		return nil, err
	}
	s.db = db
	common.GetLogger().WithStore("sqlite").Debug("SQLite database connection established")
	return db, nil
}

func (s *Store) Validate() error {
	if s.db == nil {
		return errors.New("sqlite store is not connected")
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure creates the history table.
func (s *Store) Ensure(th connector.TableNames) error {
	logger := common.GetLogger().WithStore("sqlite")
	ensureRetry := retry.DefaultRetryConfig()
	ensureRetry.Operation = "ensure history schema"
	for i, q := range s.dialect.GetEnsureStatements(th.SyncRuns) {
		_, err := retry.WithRetryExec(context.Background(), ensureRetry, func() (sql.Result, error) {
			return s.db.Exec(q)
		})
		if err != nil {
			logger.Error("failed to ensure history schema", "error", err, "statement", i+1)
			return fmt.Errorf("failed to ensure table %s (statement %d): %w", th.SyncRuns, i+1, err)
		}
	}
	logger.Debug("history schema ensured", "table", th.SyncRuns)
	return nil
}

// RecordSync inserts one run and returns its id.
func (s *Store) RecordSync(ctx context.Context, th connector.TableNames, run connector.SyncRun) (int64, error) {
	var kind interface{}
	if run.FailureKind != "" {
		kind = run.FailureKind
	}
	// #nosec G201 -- only the validated table name is interpolated
	q := fmt.Sprintf("INSERT INTO %s(schema_path, outcome, exit_code, failure_kind, stdout, stderr, started_at, duration_ms) VALUES(?,?,?,?,?,?,?,?)", th.SyncRuns)
	res, err := s.db.ExecContext(ctx, q,
		run.SchemaPath, run.Outcome, run.ExitCode, kind, run.Stdout, run.Stderr,
		s.dialect.ConvertTimeToStorage(run.StartedAt), run.DurationMS)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSyncs returns the newest runs first.
func (s *Store) ListSyncs(ctx context.Context, th connector.TableNames, limit int) ([]connector.SyncRun, error) {
	// #nosec G201 -- only the validated table name is interpolated
	q := fmt.Sprintf("SELECT id, schema_path, outcome, exit_code, failure_kind, stdout, stderr, started_at, duration_ms FROM %s ORDER BY id DESC", th.SyncRuns)
	var args []interface{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rc := retry.DefaultRetryConfig()
	rc.Operation = "list sync runs"
	rows, err := retry.WithRetryQuery(ctx, rc, func() (*sql.Rows, error) {
		return s.db.QueryContext(ctx, q, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []connector.SyncRun
	for rows.Next() {
		var (
			run       connector.SyncRun
			kind      sql.NullString
			startedAt string
		)
		if err := rows.Scan(&run.ID, &run.SchemaPath, &run.Outcome, &run.ExitCode, &kind,
			&run.Stdout, &run.Stderr, &startedAt, &run.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.FailureKind = kind.String
		run.StartedAt = s.dialect.ConvertTimeFromStorage(startedAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
