// Package dbwait blocks until the proxy's PostgreSQL database answers a ping.
package dbwait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/retry"
	"github.com/loykin/proxyboot/internal/util"
)

// ErrNoURL is returned when neither URL nor the URL environment variable is set.
var ErrNoURL = errors.New("database url is not set")

// Config controls the wait.
type Config struct {
	// URL overrides the value read from URLEnv.
	URL string
	// URLEnv names the variable holding the connection string.
	URLEnv   string
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	// PingTimeout bounds a single connect+ping attempt.
	PingTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		URLEnv:      constants.DefaultDatabaseURLEnv,
		Attempts:    constants.DefaultDatabaseWaitAttempts,
		Delay:       constants.DefaultDatabaseWaitDelay,
		MaxDelay:    constants.DefaultDatabaseWaitMaxDelay,
		PingTimeout: 5 * time.Second,
	}
}

// PingFunc performs one reachability check.
type PingFunc func(ctx context.Context, url string) error

// Waiter pings the database until it is reachable.
type Waiter struct {
	cfg    Config
	env    *env.Env
	ping   PingFunc
	logger *common.Logger
}

type Option func(*Waiter)

// WithEnv sets where URLEnv is looked up.
func WithEnv(e *env.Env) Option { return func(w *Waiter) { w.env = e } }

// WithLogger replaces the logger.
func WithLogger(l *common.Logger) Option { return func(w *Waiter) { w.logger = l } }

// WithPing replaces the pgx ping.
func WithPing(fn PingFunc) Option { return func(w *Waiter) { w.ping = fn } }

func New(cfg Config, opts ...Option) *Waiter {
	w := &Waiter{cfg: cfg, ping: Ping}
	for _, opt := range opts {
		opt(w)
	}
	if w.env == nil {
		w.env = env.FromOS()
	}
	if w.logger == nil {
		w.logger = common.GetLogger().WithComponent("dbwait")
	}
	return w
}

// URL resolves the connection string.
func (w *Waiter) URL() string {
	if u, ok := util.TrimEmptyCheck(w.cfg.URL); ok {
		return u
	}
	name := util.TrimWithDefault(w.cfg.URLEnv, constants.DefaultDatabaseURLEnv)
	return util.TrimWithDefault(w.env.Get(name), "")
}

// Wait returns nil once a ping succeeds, ErrNoURL when there is nothing to
// ping, or the last ping error when attempts run out.
func (w *Waiter) Wait(ctx context.Context) error {
	url := w.URL()
	if url == "" {
		return ErrNoURL
	}
	attempts := w.cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	rc := &retry.Config{
		MaxRetries:    attempts - 1,
		InitialDelay:  w.cfg.Delay,
		MaxDelay:      w.cfg.MaxDelay,
		BackoffFactor: 2.0,
		RetryAll:      true,
		Operation:     "database ping",
	}

	start := time.Now()
	err := retry.WithRetry(ctx, rc, func() error {
		pctx := ctx
		if w.cfg.PingTimeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, w.cfg.PingTimeout)
			defer cancel()
		}
		return w.ping(pctx, url)
	})
	if err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	w.logger.Info("database is reachable", append(target(url), "waited", time.Since(start).Round(time.Millisecond))...)
	return nil
}

// target describes the database without credentials. Both URL and
// key/value connection strings are understood.
func target(connString string) []any {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil
	}
	return []any{"host", cfg.Host, "port", cfg.Port, "database", cfg.Database}
}

// Ping opens a single pgx connection and pings it.
func Ping(ctx context.Context, url string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()
	return conn.Ping(ctx)
}
