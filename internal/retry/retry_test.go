package retry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastConfig(retryable ...string) *Config {
	return &Config{
		MaxRetries:      2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: retryable,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()
	if config.MaxRetries != 3 || config.InitialDelay != 100*time.Millisecond || config.MaxDelay != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", config)
	}
	if len(config.RetryableErrors) != len(DefaultTransientErrors) {
		t.Fatalf("expected %d retryable errors, got %d", len(DefaultTransientErrors), len(config.RetryableErrors))
	}
	config.RetryableErrors[0] = "changed"
	if DefaultTransientErrors[0] == "changed" {
		t.Fatal("DefaultRetryConfig must copy the shared error list")
	}
}

func TestConfig_isRetryableError(t *testing.T) {
	config := DefaultRetryConfig()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"postgres starting", errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"dns", errors.New("dial tcp: lookup db: no such host"), true},
		{"case insensitive", errors.New("CONNECTION REFUSED"), true},
		{"context canceled", context.Canceled, false},
		{"wrapped deadline", errors.Join(errors.New("timeout"), context.DeadlineExceeded), false},
		{"syntax error", errors.New(`syntax error at or near "SELEC"`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.isRetryableError(tt.err); got != tt.expected {
				t.Errorf("isRetryableError(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestConfig_RetryAll(t *testing.T) {
	config := &Config{RetryAll: true}
	if !config.isRetryableError(errors.New("password authentication failed")) {
		t.Error("RetryAll should retry arbitrary errors")
	}
	if config.isRetryableError(context.Canceled) {
		t.Error("RetryAll must not retry cancellation")
	}
}

func TestConfig_calculateDelay(t *testing.T) {
	config := DefaultRetryConfig()

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, 3200 * time.Millisecond},
		{7, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := config.calculateDelay(tt.attempt); got != tt.expected {
			t.Errorf("calculateDelay(%d) = %v, expected %v", tt.attempt, got, tt.expected)
		}
	}

	flat := &Config{InitialDelay: 50 * time.Millisecond, BackoffFactor: 0}
	if got := flat.calculateDelay(4); got != 50*time.Millisecond {
		t.Errorf("factor below 1 should keep the delay flat, got %v", got)
	}
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		failUntil int
		failWith  string
		wantCalls int
		wantErr   string
	}{
		{"first attempt succeeds", fastConfig(), 0, "", 1, ""},
		{"recovers after transient errors", fastConfig("connection refused"), 2, "connection refused", 3, ""},
		{"non-retryable returns immediately", fastConfig("connection refused"), 5, "syntax error", 1, "syntax error"},
		{"gives up after max retries", fastConfig("connection refused"), 5, "connection refused", 3, "operation failed after 3 attempts: connection refused"},
		{"nil config uses defaults", nil, 0, "", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), tt.config, func() error {
				calls++
				if calls <= tt.failUntil {
					return errors.New(tt.failWith)
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == "" && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	config := &Config{
		MaxRetries:      5,
		InitialDelay:    50 * time.Millisecond,
		MaxDelay:        200 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []string{"connection refused"},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := WithRetry(ctx, config, func() error { return errors.New("connection refused") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !strings.Contains(err.Error(), "operation cancelled during retry") {
		t.Errorf("unexpected message: %v", err)
	}
}

type mockResult struct{}

func (mockResult) LastInsertId() (int64, error) { return 1, nil }
func (mockResult) RowsAffected() (int64, error) { return 1, nil }

func TestWithRetryExec(t *testing.T) {
	calls := 0
	result, err := WithRetryExec(context.Background(), fastConfig("database is locked"), func() (sql.Result, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("database is locked")
		}
		return mockResult{}, nil
	})
	if err != nil || result == nil {
		t.Fatalf("result=%v err=%v", result, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryQuery(t *testing.T) {
	calls := 0
	_, err := WithRetryQuery(context.Background(), fastConfig("connection refused"), func() (*sql.Rows, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("connection refused")
		}
		return nil, nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func BenchmarkWithRetry_NoRetries(b *testing.B) {
	config := DefaultRetryConfig()
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		_ = WithRetry(ctx, config, func() error { return nil })
	}
}
