package constants

import (
	"net/http"
	"time"
)

// Migration tool defaults
const (
	DefaultSyncTool     = "prisma"
	DefaultToolBinDir   = "/opt/venv/bin"
	DefaultCacheDirEnv  = "PRISMA_PYTHON_CACHE_DIR"
	DefaultCacheDir     = "/home/claude/.cache/prisma-python"
	DefaultProxyDir     = "/opt/venv/lib/python3.11/site-packages/litellm/proxy"
	DefaultSchemaPath   = DefaultProxyDir + "/prisma/schema.prisma"
	AcceptDataLossFlag  = "--accept-data-loss"
	AlreadyInSyncPhrase = "already in sync"
)

// Startup defaults
const (
	DefaultMasterKeyEnv    = "LITELLM_MASTER_KEY"
	DefaultMasterKeyPrefix = "sk-"
	ConfigFilePathEnv      = "CONFIG_FILE_PATH"
	DefaultProxyConfigPath = "/app/config/litellm_config.yaml"
	DefaultServerCommand   = "litellm"
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 4000
)

// Exit codes
const (
	ExitOK           = 0
	ExitPrecondition = 1
)

// Database defaults
const (
	DefaultDatabaseURLEnv  = "DATABASE_URL"
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	DefaultPostgresMaxConnections = 5
	DefaultPostgresMaxIdleConns   = 2
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	DefaultSyncRunsTable = "schema_sync_runs"
	SyncRunsSuffix       = "_schema_sync_runs"
	DefaultHistoryLimit  = 20
	DefaultSQLitePath    = "proxyboot.db"

	// MaxStoredOutputBytes caps the stdout/stderr kept per history row.
	MaxStoredOutputBytes = 64 << 10
)

// Time and Duration Constants
const (
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute

	DefaultDatabaseWaitAttempts = 10
	DefaultDatabaseWaitDelay    = 500 * time.Millisecond
	DefaultDatabaseWaitMaxDelay = 5 * time.Second
)

// Health probe defaults
const (
	DefaultHealthURL      = "http://127.0.0.1:4000/health/liveliness"
	DefaultHealthTimeout  = 60 * time.Second
	DefaultHealthInterval = 2 * time.Second
	DefaultHealthStatus   = http.StatusOK
	DefaultHealthMethod   = http.MethodGet

	DefaultHealthRequestTimeout = 5 * time.Second
)
