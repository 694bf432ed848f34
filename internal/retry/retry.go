// Package retry retries database operations with exponential backoff.
package retry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/proxyboot/internal/common"
)

// Config controls how often and how fast an operation is retried.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// RetryableErrors are lowercase substrings that mark an error as transient.
	RetryableErrors []string
	// RetryAll treats every error except context cancellation as transient.
	RetryAll bool
	// Operation names the operation in log lines.
	Operation string
}

// DefaultTransientErrors are the failures seen while the proxy database is
// starting or briefly unavailable.
var DefaultTransientErrors = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"no such host",
	"the database system is starting up",
	"deadlock",
	"database is locked",
	"connection lost",
	"broken pipe",
}

// DefaultRetryConfig returns the configuration used for history store writes.
func DefaultRetryConfig() *Config {
	errs := make([]string, len(DefaultTransientErrors))
	copy(errs, DefaultTransientErrors)
	return &Config{
		MaxRetries:      3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: errs,
		Operation:       "database operation",
	}
}

func (rc *Config) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if rc.RetryAll {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, retryableErr := range rc.RetryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}
	return false
}

// calculateDelay returns InitialDelay * BackoffFactor^(attempt-1), capped at
// MaxDelay.
func (rc *Config) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return rc.InitialDelay
	}
	factor := rc.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(factor, float64(attempt-1)))
	if rc.MaxDelay > 0 && delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

func (rc *Config) operationName() string {
	if rc.Operation == "" {
		return "database operation"
	}
	return rc.Operation
}

// RetryableOperation is one attempt of a retried operation.
type RetryableOperation func() error

// WithRetry runs operation until it succeeds, returns a non-transient error,
// runs out of attempts or ctx is done.
func WithRetry(ctx context.Context, config *Config, operation RetryableOperation) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	logger := common.GetLogger().WithComponent("retry")
	name := config.operationName()

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info(name+" succeeded after retry",
					"attempt", attempt+1,
					"total_attempts", config.MaxRetries+1)
			}
			return nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}
		if !config.isRetryableError(err) {
			logger.Debug(name+" failed with non-retryable error", "error", err, "attempt", attempt+1)
			return err
		}

		delay := config.calculateDelay(attempt)
		logger.Warn(name+" failed, retrying",
			"error", err,
			"attempt", attempt+1,
			"max_attempts", config.MaxRetries+1,
			"retry_delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("operation cancelled during retry: %w", ctx.Err())
		case <-timer.C:
		}
	}

	logger.Error(name+" failed after all retry attempts", "error", lastErr, "attempts", config.MaxRetries+1)
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

// RetryableExec is one attempt of a statement execution.
type RetryableExec func() (sql.Result, error)

// WithRetryExec executes a statement with retry logic.
func WithRetryExec(ctx context.Context, config *Config, exec RetryableExec) (sql.Result, error) {
	var result sql.Result
	err := WithRetry(ctx, config, func() error {
		var err error
		result, err = exec()
		return err
	})
	return result, err
}

// RetryableQuery is one attempt of a query.
type RetryableQuery func() (*sql.Rows, error)

// WithRetryQuery executes a query with retry logic.
func WithRetryQuery(ctx context.Context, config *Config, query RetryableQuery) (*sql.Rows, error) {
	var rows *sql.Rows
	err := WithRetry(ctx, config, func() error {
		var err error
		rows, err = query()
		return err
	})
	return rows, err
}
