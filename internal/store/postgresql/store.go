package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/retry"
	"github.com/loykin/proxyboot/internal/store/connector"
)

// Store is the PostgreSQL backend of the sync history.
type Store struct {
	db      *sql.DB
	dialect *Dialect
	DSN     string
}

func NewStore() *Store {
	return &Store{dialect: NewDialect()}
}

var _ connector.Connector = (*Store)(nil)

func (p *Store) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		p.DSN = dsn
	}
	return nil
}

func (p *Store) Connect() (*sql.DB, error) {
	if p.DSN == "" {
		return nil, errors.New("postgres store requires a dsn or host")
	}
	db, err := p.dialect.Connect(p.DSN)
	if err != nil {
		return nil, err
	}
	p.db = db
	common.GetLogger().WithStore("postgresql").Debug("PostgreSQL database connection established")
	return db, nil
}

func (p *Store) Validate() error {
	if p.db == nil {
		return errors.New("postgres store is not connected")
	}
	return nil
}

func (p *Store) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Store) Ensure(th connector.TableNames) error {
	logger := common.GetLogger().WithStore("postgresql")
	ensureRetry := retry.DefaultRetryConfig()
	ensureRetry.Operation = "ensure history schema"
	for i, q := range p.dialect.GetEnsureStatements(th.SyncRuns) {
		_, err := retry.WithRetryExec(context.Background(), ensureRetry, func() (sql.Result, error) {
			return p.db.Exec(q)
		})
		if err != nil {
			logger.Error("failed to ensure history schema", "error", err, "statement", i+1)
			return fmt.Errorf("failed to ensure table %s (statement %d): %w", th.SyncRuns, i+1, err)
		}
	}
	logger.Debug("history schema ensured", "table", th.SyncRuns)
	return nil
}

func (p *Store) RecordSync(ctx context.Context, th connector.TableNames, run connector.SyncRun) (int64, error) {
	var kind interface{}
	if run.FailureKind != "" {
		kind = run.FailureKind
	}
	// #nosec G201 -- only the validated table name is interpolated
	q := fmt.Sprintf("INSERT INTO %s(schema_path, outcome, exit_code, failure_kind, stdout, stderr, started_at, duration_ms) VALUES(%s,%s,%s,%s,%s,%s,%s,%s) RETURNING id",
		th.SyncRuns,
		p.dialect.GetPlaceholder(1), p.dialect.GetPlaceholder(2), p.dialect.GetPlaceholder(3), p.dialect.GetPlaceholder(4),
		p.dialect.GetPlaceholder(5), p.dialect.GetPlaceholder(6), p.dialect.GetPlaceholder(7), p.dialect.GetPlaceholder(8))
	var id int64
	err := p.db.QueryRowContext(ctx, q,
		run.SchemaPath, run.Outcome, run.ExitCode, kind, run.Stdout, run.Stderr,
		p.dialect.ConvertTimeToStorage(run.StartedAt), run.DurationMS).Scan(&id)
	return id, err
}

func (p *Store) ListSyncs(ctx context.Context, th connector.TableNames, limit int) ([]connector.SyncRun, error) {
	// #nosec G201 -- only the validated table name is interpolated
	q := fmt.Sprintf("SELECT id, schema_path, outcome, exit_code, failure_kind, stdout, stderr, started_at, duration_ms FROM %s ORDER BY id DESC", th.SyncRuns)
	var args []interface{}
	if limit > 0 {
		q += " LIMIT " + p.dialect.GetPlaceholder(1)
		args = append(args, limit)
	}
	rc := retry.DefaultRetryConfig()
	rc.Operation = "list sync runs"
	rows, err := retry.WithRetryQuery(ctx, rc, func() (*sql.Rows, error) {
		return p.db.QueryContext(ctx, q, args...)
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
			startedAt time.Time
		)
		if err := rows.Scan(&run.ID, &run.SchemaPath, &run.Outcome, &run.ExitCode, &kind,
			&run.Stdout, &run.Stderr, &startedAt, &run.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.FailureKind = kind.String
		run.StartedAt = p.dialect.ConvertTimeFromStorage(startedAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
