package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/dbwait"
	"github.com/loykin/proxyboot/internal/health"
	"github.com/loykin/proxyboot/internal/httpc"
	"github.com/loykin/proxyboot/internal/schemasync"
	"github.com/loykin/proxyboot/internal/startup"
	"github.com/loykin/proxyboot/internal/store"
	"github.com/loykin/proxyboot/internal/util"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"` // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"`
	Color         *bool  `mapstructure:"color" yaml:"color"`
}

type SyncConfig struct {
	Tool           string        `mapstructure:"tool" yaml:"tool"`
	BinDir         string        `mapstructure:"bin_dir" yaml:"bin_dir"`
	CacheDirEnv    string        `mapstructure:"cache_dir_env" yaml:"cache_dir_env"`
	CacheDir       string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	SchemaPath     string        `mapstructure:"schema_path" yaml:"schema_path"`
	AcceptDataLoss bool          `mapstructure:"accept_data_loss" yaml:"accept_data_loss"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"` // 0 = no timeout
}

type StartupConfig struct {
	KeyEnv          string `mapstructure:"key_env" yaml:"key_env"`
	KeyPrefix       string `mapstructure:"key_prefix" yaml:"key_prefix"`
	FailOnSyncError bool   `mapstructure:"fail_on_sync_error" yaml:"fail_on_sync_error"`
	ProxyConfig     string `mapstructure:"proxy_config" yaml:"proxy_config"`
}

type ServerConfig struct {
	Command   string        `mapstructure:"command" yaml:"command"`
	Host      string        `mapstructure:"host" yaml:"host"`
	Port      int           `mapstructure:"port" yaml:"port"`
	BinDir    string        `mapstructure:"bin_dir" yaml:"bin_dir"`
	ExtraArgs []string      `mapstructure:"extra_args" yaml:"extra_args"`
	StopGrace time.Duration `mapstructure:"stop_grace" yaml:"stop_grace"`
}

type DatabaseConfig struct {
	Wait     bool          `mapstructure:"wait" yaml:"wait"`
	URLEnv   string        `mapstructure:"url_env" yaml:"url_env"`
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

type SQLiteStoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type PostgresStoreConfig struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

type StoreConfig struct {
	Type        string              `mapstructure:"type" yaml:"type"` // "", sqlite, postgres
	TablePrefix string              `mapstructure:"table_prefix" yaml:"table_prefix"`
	SQLite      SQLiteStoreConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres    PostgresStoreConfig `mapstructure:"postgres" yaml:"postgres"`
}

type HealthConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Method        string        `mapstructure:"method" yaml:"method"`
	Status        int           `mapstructure:"status" yaml:"status"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
	JSONField     string        `mapstructure:"json_field" yaml:"json_field"`
	JSONValue     string        `mapstructure:"json_value" yaml:"json_value"`
	Insecure      bool          `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string        `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string        `mapstructure:"max_tls_version" yaml:"max_tls_version"`
}

// ConfigDoc is the decoded configuration file merged with env and flags.
type ConfigDoc struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Startup  StartupConfig  `mapstructure:"startup" yaml:"startup"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Health   HealthConfig   `mapstructure:"health" yaml:"health"`
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("config", "./config/proxyboot.yaml")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("sync.tool", constants.DefaultSyncTool)
	v.SetDefault("sync.bin_dir", constants.DefaultToolBinDir)
	v.SetDefault("sync.cache_dir_env", constants.DefaultCacheDirEnv)
	v.SetDefault("sync.cache_dir", constants.DefaultCacheDir)
	v.SetDefault("sync.schema_path", constants.DefaultSchemaPath)
	v.SetDefault("sync.accept_data_loss", true)
	v.SetDefault("sync.timeout", time.Duration(0))

	v.SetDefault("startup.key_env", constants.DefaultMasterKeyEnv)
	v.SetDefault("startup.key_prefix", constants.DefaultMasterKeyPrefix)
	v.SetDefault("startup.fail_on_sync_error", false)
	v.SetDefault("startup.proxy_config", constants.DefaultProxyConfigPath)

	v.SetDefault("server.command", constants.DefaultServerCommand)
	v.SetDefault("server.host", constants.DefaultServerHost)
	v.SetDefault("server.port", constants.DefaultServerPort)
	v.SetDefault("server.bin_dir", constants.DefaultToolBinDir)
	v.SetDefault("server.extra_args", []string{})
	v.SetDefault("server.stop_grace", 10*time.Second)

	v.SetDefault("database.wait", false)
	v.SetDefault("database.url_env", constants.DefaultDatabaseURLEnv)
	v.SetDefault("database.attempts", constants.DefaultDatabaseWaitAttempts)
	v.SetDefault("database.delay", constants.DefaultDatabaseWaitDelay)
	v.SetDefault("database.max_delay", constants.DefaultDatabaseWaitMaxDelay)

	v.SetDefault("store.type", "")
	v.SetDefault("store.table_prefix", "")
	v.SetDefault("store.sqlite.path", constants.DefaultSQLitePath)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.host", "")
	v.SetDefault("store.postgres.port", constants.DefaultPostgresPort)
	v.SetDefault("store.postgres.user", "")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.dbname", "")
	v.SetDefault("store.postgres.sslmode", constants.DefaultPostgresSSLMode)

	v.SetDefault("health.url", constants.DefaultHealthURL)
	v.SetDefault("health.method", constants.DefaultHealthMethod)
	v.SetDefault("health.status", constants.DefaultHealthStatus)
	v.SetDefault("health.timeout", constants.DefaultHealthTimeout)
	v.SetDefault("health.interval", constants.DefaultHealthInterval)
	v.SetDefault("health.json_field", "")
	v.SetDefault("health.json_value", "")
	v.SetDefault("health.insecure", false)
	v.SetDefault("health.min_tls_version", "")
	v.SetDefault("health.max_tls_version", "")
}

// LoadConfig reads the optional config file named by the "config" key and
// decodes everything into a ConfigDoc. A missing file is not an error.
func LoadConfig(v *viper.Viper) (*ConfigDoc, error) {
	if path, ok := util.TrimEmptyCheck(v.GetString("config")); ok {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			common.LogDebug("config file not found, using defaults", "config", path)
		case err != nil:
			return nil, err
		case !info.Mode().IsRegular():
			return nil, fmt.Errorf("not a regular file: %s", path)
		default:
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var doc ConfigDoc
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&doc, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &doc, nil
}

// WriteYAML prints the effective configuration.
func (c *ConfigDoc) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func (c *ConfigDoc) parseLogLevel() (common.LogLevel, error) {
	switch util.TrimAndLower(c.Logging.Level) {
	case "error":
		return common.LogLevelError, nil
	case "warn", "warning":
		return common.LogLevelWarn, nil
	case "info", "":
		return common.LogLevelInfo, nil
	case "debug":
		return common.LogLevelDebug, nil
	default:
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging installs the global logger described by the logging section.
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	format := util.TrimAndLower(c.Logging.Format)
	useColor := format == "color" || format == "colour"
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	}

	var logger *common.Logger
	switch format {
	case "json":
		logger = common.NewJSONLogger(level)
	case "color", "colour", "text", "":
		if useColor {
			logger = common.NewColorLogger(level)
		} else {
			logger = common.NewLogger(level)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	masking := true
	if c.Logging.MaskSensitive != nil {
		masking = *c.Logging.MaskSensitive
	}
	common.EnableMasking(masking)
	common.SetDefaultLogger(logger)

	logger.Debug("logging configured", "level", level.String(), "format", format, "color", useColor, "mask_sensitive", masking)
	return nil
}

func (c *ConfigDoc) SyncConfig() schemasync.Config {
	return schemasync.Config{
		Tool:        util.TrimWithDefault(c.Sync.Tool, constants.DefaultSyncTool),
		BinDir:      strings.TrimSpace(c.Sync.BinDir),
		CacheDirEnv: strings.TrimSpace(c.Sync.CacheDirEnv),
		CacheDir:    strings.TrimSpace(c.Sync.CacheDir),
		Timeout:     c.Sync.Timeout,
	}
}

func (c *ConfigDoc) KeyPolicy() startup.KeyPolicy {
	return startup.KeyPolicy{
		EnvName: util.TrimWithDefault(c.Startup.KeyEnv, constants.DefaultMasterKeyEnv),
		Prefix:  util.TrimWithDefault(c.Startup.KeyPrefix, constants.DefaultMasterKeyPrefix),
	}
}

func (c *ConfigDoc) StartupConfig() startup.Config {
	return startup.Config{
		Keys:            c.KeyPolicy(),
		SchemaPath:      util.TrimWithDefault(c.Sync.SchemaPath, constants.DefaultSchemaPath),
		AcceptDataLoss:  c.Sync.AcceptDataLoss,
		FailOnSyncError: c.Startup.FailOnSyncError,
		ProxyConfigPath: strings.TrimSpace(c.Startup.ProxyConfig),
		ServerBinDir:    strings.TrimSpace(c.Server.BinDir),
		Server: startup.ServerConfig{
			Command:   c.Server.Command,
			Host:      c.Server.Host,
			Port:      c.Server.Port,
			ExtraArgs: c.Server.ExtraArgs,
			StopGrace: c.Server.StopGrace,
		},
	}
}

func (c *ConfigDoc) DBWaitConfig() dbwait.Config {
	cfg := dbwait.DefaultConfig()
	cfg.URLEnv = util.TrimWithDefault(c.Database.URLEnv, cfg.URLEnv)
	if c.Database.Attempts > 0 {
		cfg.Attempts = c.Database.Attempts
	}
	if c.Database.Delay > 0 {
		cfg.Delay = c.Database.Delay
	}
	if c.Database.MaxDelay > 0 {
		cfg.MaxDelay = c.Database.MaxDelay
	}
	return cfg
}

// StoreConfig returns nil when no history store is configured.
func (c *ConfigDoc) StoreConfig() (*store.Config, error) {
	driver, err := store.NormalizeDriver(c.Store.Type)
	if err != nil || driver == "" {
		return nil, err
	}
	out := &store.Config{
		Driver:     driver,
		TableNames: store.TableNamesWithPrefix(c.Store.TablePrefix),
	}
	if driver == store.DriverPostgresql {
		pg := c.Store.Postgres
		out.DriverConfig = &store.PostgresConfig{
			DSN:      pg.DSN,
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			DBName:   pg.DBName,
			SSLMode:  pg.SSLMode,
		}
		return out, nil
	}
	out.DriverConfig = &store.SqliteConfig{Path: util.TrimWithDefault(c.Store.SQLite.Path, constants.DefaultSQLitePath)}
	return out, nil
}

func (c *ConfigDoc) HealthConfig() (health.Config, *httpc.Httpc) {
	h := c.Health
	cfg := health.Config{
		URL:       h.URL,
		Method:    h.Method,
		Status:    h.Status,
		Timeout:   h.Timeout,
		Interval:  h.Interval,
		JSONField: strings.TrimSpace(h.JSONField),
		JSONValue: h.JSONValue,
	}
	client := httpc.FromOptions(httpc.Options{
		Insecure:      h.Insecure,
		MinTLSVersion: h.MinTLSVersion,
		MaxTLSVersion: h.MaxTLSVersion,
		Timeout:       constants.DefaultHealthRequestTimeout,
	})
	return cfg, client
}
