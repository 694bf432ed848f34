package proxyboot

import (
	"context"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/providers"
	"github.com/loykin/proxyboot/internal/schemasync"
	"github.com/loykin/proxyboot/internal/startup"
	"github.com/loykin/proxyboot/internal/store"
)

// Re-export commonly used types for public API

// Env is the layered environment handed to child processes.
type Env = env.Env

// NewEnv returns a copy of the current process environment.
func NewEnv() *Env { return env.FromOS() }

// SyncConfig configures the migration tool.
type SyncConfig = schemasync.Config

// SyncRequest describes one schema push.
type SyncRequest = schemasync.Request

// SyncResult is the outcome of one schema push.
type SyncResult = schemasync.Result

// SyncFailure is the tagged failure carried by a failed SyncResult.
type SyncFailure = schemasync.Failure

const (
	SyncFailed        = schemasync.Failed
	SyncAlreadyInSync = schemasync.AlreadyInSync
	SyncUpdated       = schemasync.Updated
)

// DefaultSyncConfig returns the settings used inside the proxy image.
func DefaultSyncConfig() SyncConfig { return schemasync.DefaultConfig() }

// Synchronize pushes the schema at req.SchemaPath once.
func Synchronize(ctx context.Context, cfg SyncConfig, req SyncRequest) SyncResult {
	return schemasync.New(cfg).Synchronize(ctx, req)
}

// KeyPolicy says where the master key lives and what it must look like.
type KeyPolicy = startup.KeyPolicy

// Preconditions is what the key checks observed.
type Preconditions = startup.Preconditions

var (
	ErrMissingCredential   = startup.ErrMissingCredential
	ErrMalformedCredential = startup.ErrMalformedCredential
)

// DefaultKeyPolicy is LITELLM_MASTER_KEY with the "sk-" prefix.
func DefaultKeyPolicy() KeyPolicy { return startup.DefaultKeyPolicy() }

// CheckKey validates the master key found in e.
func CheckKey(p KeyPolicy, e *Env) (Preconditions, error) { return p.Validate(e) }

// ProviderReport summarizes a proxy config file.
type ProviderReport = providers.Report

// LoadProviders parses the proxy config at path.
func LoadProviders(path string) (*ProviderReport, error) { return providers.Load(path) }

// Store is the sync history store.
type Store = store.Store

// StoreConfig selects and configures the history backend.
type StoreConfig = store.Config

// SyncRun is one recorded sync attempt.
type SyncRun = store.SyncRun

// StoreDBFileName is the default sqlite filename for sync history.
const StoreDBFileName = constants.DefaultSQLitePath

// OpenStore opens the history store described by cfg and creates its table.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) { return store.Open(ctx, cfg) }

// OpenSQLiteStore opens (and initializes) the sqlite store at path.
func OpenSQLiteStore(ctx context.Context, path string) (*Store, error) {
	return store.Open(ctx, store.Config{
		Driver:       store.DriverSqlite,
		DriverConfig: &store.SqliteConfig{Path: path},
	})
}

// Logger is the structured logger used throughout proxyboot.
type Logger = common.Logger

type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

// NewLogger creates a text logger with secret masking.
func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }

// NewColorLogger creates a logger with colorized terminal output.
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

// SetDefaultLogger replaces the logger used by the internal packages.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

// MaskSensitiveData hides master keys, passwords and credentials in s.
func MaskSensitiveData(s string) string { return common.MaskSensitiveData(s) }
