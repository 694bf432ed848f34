// Package store keeps a history of schema sync runs in SQLite or PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/retry"
	"github.com/loykin/proxyboot/internal/schemasync"
	"github.com/loykin/proxyboot/internal/store/connector"
	"github.com/loykin/proxyboot/internal/store/postgresql"
	"github.com/loykin/proxyboot/internal/store/sqlite"
	"github.com/loykin/proxyboot/internal/util"
)

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

type (
	SyncRun        = connector.SyncRun
	TableNames     = connector.TableNames
	SqliteConfig   = sqlite.Config
	PostgresConfig = postgresql.Config
)

// DriverConfig is the backend specific part of Config.
type DriverConfig interface {
	ToMap() map[string]interface{}
}

// Config selects and configures a backend.
type Config struct {
	Driver       string
	TableNames   TableNames
	DriverConfig DriverConfig
	// Retry controls write retries; nil uses retry.DefaultRetryConfig.
	Retry *retry.Config
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// TableNamesWithPrefix derives the table names from an optional prefix.
func TableNamesWithPrefix(prefix string) TableNames {
	if p, ok := util.TrimEmptyCheck(prefix); ok {
		return TableNames{SyncRuns: p + constants.SyncRunsSuffix}
	}
	return TableNames{SyncRuns: constants.DefaultSyncRunsTable}
}

// validateTableNames fills in the default name and rejects unsafe identifiers.
func validateTableNames(tn TableNames) (TableNames, error) {
	if strings.TrimSpace(tn.SyncRuns) == "" {
		tn.SyncRuns = constants.DefaultSyncRunsTable
	}
	if !identRe.MatchString(tn.SyncRuns) {
		return tn, fmt.Errorf("invalid table name %q", tn.SyncRuns)
	}
	return tn, nil
}

// NormalizeDriver maps the accepted spellings to DriverSqlite or
// DriverPostgresql. An empty driver means no store.
func NormalizeDriver(driver string) (string, error) {
	switch util.TrimAndLower(driver) {
	case "":
		return "", nil
	case "sqlite", "sqlite3":
		return DriverSqlite, nil
	case "postgres", "postgresql", "pg":
		return DriverPostgresql, nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Store records sync results through a connector.
type Store struct {
	connector connector.Connector
	tn        TableNames
	retry     *retry.Config
	driver    string
	logger    *common.Logger
}

// Open connects to the configured backend and ensures the history table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if driver == "" {
		return nil, errors.New("store driver is not set")
	}
	tn, err := validateTableNames(cfg.TableNames)
	if err != nil {
		return nil, err
	}

	var c connector.Connector
	switch driver {
	case DriverPostgresql:
		c = postgresql.NewStore()
	default:
		c = sqlite.NewStore()
	}
	if cfg.DriverConfig != nil {
		if err := c.Load(cfg.DriverConfig.ToMap()); err != nil {
			return nil, err
		}
	}

	rc := cfg.Retry
	if rc == nil {
		rc = retry.DefaultRetryConfig()
		rc.Operation = "history store connect"
	}
	if err := retry.WithRetry(ctx, rc, func() error {
		_, err := c.Connect()
		return err
	}); err != nil {
		return nil, fmt.Errorf("connect %s store: %w", driver, err)
	}
	if err := c.Validate(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.Ensure(tn); err != nil {
		_ = c.Close()
		return nil, err
	}

	return &Store{
		connector: c,
		tn:        tn,
		retry:     cfg.Retry,
		driver:    driver,
		logger:    common.GetLogger().WithStore(driver),
	}, nil
}

// Driver returns the normalized driver name.
func (s *Store) Driver() string { return s.driver }

// TableNames returns the validated table names in use.
func (s *Store) TableNames() TableNames { return s.tn }

// RecordSync stores one synchronizer result.
func (s *Store) RecordSync(ctx context.Context, res schemasync.Result) error {
	run := FromResult(res)
	rc := s.retry
	if rc == nil {
		rc = retry.DefaultRetryConfig()
		rc.Operation = "record schema sync"
	}
	var id int64
	err := retry.WithRetry(ctx, rc, func() error {
		var err error
		id, err = s.connector.RecordSync(ctx, s.tn, run)
		return err
	})
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	s.logger.Debug("schema sync recorded", "id", id, "outcome", run.Outcome)
	return nil
}

// ListSyncs returns up to limit runs, newest first.
func (s *Store) ListSyncs(ctx context.Context, limit int) ([]SyncRun, error) {
	return s.connector.ListSyncs(ctx, s.tn, limit)
}

func (s *Store) Close() error {
	if s == nil || s.connector == nil {
		return nil
	}
	return s.connector.Close()
}

// FromResult converts a synchronizer result into a history row. Captured
// output is capped at constants.MaxStoredOutputBytes.
func FromResult(res schemasync.Result) SyncRun {
	run := SyncRun{
		SchemaPath: res.SchemaPath,
		Outcome:    res.Outcome.String(),
		ExitCode:   res.ExitCode,
		Stdout:     util.Truncate(res.Stdout, constants.MaxStoredOutputBytes),
		Stderr:     util.Truncate(res.Stderr, constants.MaxStoredOutputBytes),
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Failure != nil {
		run.FailureKind = res.Failure.Kind.String()
	}
	return run
}
