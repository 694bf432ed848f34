package sqlite

import (
	"strings"
	"testing"
	"time"
)

func TestDialect_Basics(t *testing.T) {
	d := NewDialect()
	if d.GetPlaceholder() != "?" {
		t.Errorf("placeholder = %q", d.GetPlaceholder())
	}
	if d.GetDriverName() != "sqlite" {
		t.Errorf("driver = %q", d.GetDriverName())
	}
}

func TestDialect_TimeRoundTrip(t *testing.T) {
	d := NewDialect()
	in := time.Date(2024, 1, 2, 3, 4, 5, 600, time.FixedZone("KST", 9*3600))

	stored, ok := d.ConvertTimeToStorage(in).(string)
	if !ok || !strings.HasSuffix(stored, "Z") {
		t.Fatalf("stored value %v should be a UTC string", stored)
	}
	if got := d.ConvertTimeFromStorage(stored); !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
	if got := d.ConvertTimeFromStorage([]byte(stored)); !got.Equal(in) {
		t.Errorf("[]byte round trip = %v", got)
	}
	for _, bad := range []interface{}{"yesterday", 42, nil} {
		if got := d.ConvertTimeFromStorage(bad); !got.IsZero() {
			t.Errorf("ConvertTimeFromStorage(%v) = %v, want zero", bad, got)
		}
	}
}

func TestDialect_GetEnsureStatements(t *testing.T) {
	stmts := NewDialect().GetEnsureStatements("pfx_schema_sync_runs")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	for _, col := range []string{"schema_path", "outcome", "exit_code", "failure_kind", "stdout", "stderr", "started_at", "duration_ms"} {
		if !strings.Contains(stmts[0], col) {
			t.Errorf("table DDL missing column %s", col)
		}
	}
	if !strings.Contains(stmts[1], "pfx_schema_sync_runs_started_at_idx") {
		t.Errorf("index DDL = %q", stmts[1])
	}
}

func TestStore_LoadDSN(t *testing.T) {
	s := NewStore()
	if err := s.Load((&Config{Path: "/tmp/h.db"}).ToMap()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s.DSN, "file:/tmp/h.db?") || !strings.Contains(s.DSN, "busy_timeout(5000)") {
		t.Errorf("DSN = %q", s.DSN)
	}
	if err := s.Load(map[string]interface{}{"dsn": "file::memory:"}); err != nil || s.DSN != "file::memory:" {
		t.Errorf("explicit dsn not used: %q", s.DSN)
	}
}

func TestStore_InMemory(t *testing.T) {
	s := NewStore()
	if err := s.Validate(); err == nil {
		t.Error("Validate should fail before Connect")
	}
	if _, err := s.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = s.Close() }()
	if s.DSN != ":memory:" {
		t.Errorf("DSN = %q", s.DSN)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
