package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/loykin/proxyboot/internal/schemasync"
)

func openSqlite(t *testing.T, tn TableNames) *Store {
	t.Helper()
	st, err := Open(context.Background(), Config{
		Driver:       "sqlite",
		TableNames:   tn,
		DriverConfig: &SqliteConfig{Path: filepath.Join(t.TempDir(), "history.db")},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestTableNamesWithPrefix(t *testing.T) {
	if got := TableNamesWithPrefix("").SyncRuns; got != "schema_sync_runs" {
		t.Errorf("default table = %q", got)
	}
	if got := TableNamesWithPrefix(" proxy ").SyncRuns; got != "proxy_schema_sync_runs" {
		t.Errorf("prefixed table = %q", got)
	}
}

func TestNormalizeDriver(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"sqlite":     DriverSqlite,
		"SQLite3":    DriverSqlite,
		"postgres":   DriverPostgresql,
		" pg ":       DriverPostgresql,
		"postgresql": DriverPostgresql,
	}
	for in, want := range tests {
		got, err := NormalizeDriver(in)
		if err != nil || got != want {
			t.Errorf("NormalizeDriver(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeDriver("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestOpen_RejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{}); err == nil {
		t.Error("expected error for empty driver")
	}
	_, err := Open(ctx, Config{Driver: "sqlite", TableNames: TableNames{SyncRuns: "runs; DROP TABLE x"}})
	if err == nil || !strings.Contains(err.Error(), "invalid table name") {
		t.Errorf("expected invalid table name error, got %v", err)
	}
}

func TestStore_RecordAndList(t *testing.T) {
	st := openSqlite(t, TableNamesWithPrefix("pfx"))
	if st.Driver() != DriverSqlite || st.TableNames().SyncRuns != "pfx_schema_sync_runs" {
		t.Fatalf("driver=%q table=%q", st.Driver(), st.TableNames().SyncRuns)
	}
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	ok := schemasync.Result{
		SchemaPath: "/srv/schema.prisma",
		ExitCode:   0,
		Stdout:     "The database is already in sync with the Prisma schema.",
		Outcome:    schemasync.AlreadyInSync,
		StartedAt:  base,
		Duration:   1500 * time.Millisecond,
	}
	failed := schemasync.Result{
		SchemaPath: "/srv/schema.prisma",
		ExitCode:   1,
		Stderr:     "Error: P1001: Can't reach database server",
		Outcome:    schemasync.Failed,
		Failure:    &schemasync.Failure{Kind: schemasync.NonZeroExit, Message: "exit 1"},
		StartedAt:  base.Add(time.Minute),
		Duration:   200 * time.Millisecond,
	}
	for _, res := range []schemasync.Result{ok, failed} {
		if err := st.RecordSync(ctx, res); err != nil {
			t.Fatalf("RecordSync: %v", err)
		}
	}

	runs, err := st.ListSyncs(ctx, 0)
	if err != nil {
		t.Fatalf("ListSyncs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	newest := runs[0]
	if newest.Outcome != "failed" || newest.FailureKind != "non_zero_exit" || newest.ExitCode != 1 {
		t.Errorf("unexpected newest run: %+v", newest)
	}
	if newest.Stderr != failed.Stderr {
		t.Errorf("stderr = %q", newest.Stderr)
	}
	oldest := runs[1]
	if oldest.Outcome != "already_in_sync" || oldest.FailureKind != "" || oldest.DurationMS != 1500 {
		t.Errorf("unexpected oldest run: %+v", oldest)
	}
	if !oldest.StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", oldest.StartedAt, base)
	}

	limited, err := st.ListSyncs(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != newest.ID {
		t.Fatalf("limited list = %+v, %v", limited, err)
	}
}

func TestStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	cfg := Config{Driver: "sqlite", DriverConfig: &SqliteConfig{Path: path}}

	st, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.RecordSync(ctx, schemasync.Result{Outcome: schemasync.Updated, SchemaPath: "s"}); err != nil {
		t.Fatalf("RecordSync: %v", err)
	}
	_ = st.Close()

	st, err = Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	runs, err := st.ListSyncs(ctx, 10)
	if err != nil || len(runs) != 1 || runs[0].Outcome != "updated" {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}
}

func TestStore_RecordSyncCancelled(t *testing.T) {
	st := openSqlite(t, TableNames{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := st.RecordSync(ctx, schemasync.Result{Outcome: schemasync.Updated})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFromResult(t *testing.T) {
	long := strings.Repeat("x", 70<<10)
	run := FromResult(schemasync.Result{
		SchemaPath: "/a/schema.prisma",
		Outcome:    schemasync.Failed,
		ExitCode:   schemasync.NotLaunched,
		Stdout:     long,
		Failure:    &schemasync.Failure{Kind: schemasync.MissingSchemaFile},
		Duration:   2 * time.Second,
	})
	if run.FailureKind != "missing_schema_file" || run.ExitCode != -1 || run.DurationMS != 2000 {
		t.Errorf("unexpected run: %+v", run)
	}
	if len(run.Stdout) != 64<<10 || !strings.HasSuffix(run.Stdout, "...") {
		t.Errorf("stdout not capped: len=%d", len(run.Stdout))
	}
}

func TestFromResult_CapKeepsUTF8(t *testing.T) {
	stderr := strings.Repeat("a", (64<<10)-4) + strings.Repeat("é", 10)
	run := FromResult(schemasync.Result{Outcome: schemasync.Failed, Stderr: stderr})
	if !utf8.ValidString(run.Stderr) {
		t.Fatal("capped stderr is not valid UTF-8")
	}
	if len(run.Stderr) > 64<<10 || !strings.HasSuffix(run.Stderr, "...") {
		t.Errorf("stderr not capped: len=%d", len(run.Stderr))
	}
}

func TestStore_CloseNil(t *testing.T) {
	var st *Store
	if err := st.Close(); err != nil {
		t.Fatalf("Close on nil store: %v", err)
	}
}
