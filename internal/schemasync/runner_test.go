package schemasync

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/loykin/proxyboot/internal/env"
)

// fakeTool writes an executable shell script named name into a fresh bin dir.
func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	bin := t.TempDir()
	p := filepath.Join(bin, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return bin
}

func TestLookPath_UsesGivenPath(t *testing.T) {
	bin := fakeTool(t, "prisma", "exit 0\n")

	got, err := LookPath("prisma", "/nonexistent"+string(os.PathListSeparator)+bin)
	if err != nil {
		t.Fatalf("LookPath: %v", err)
	}
	if got != filepath.Join(bin, "prisma") {
		t.Fatalf("LookPath = %q", got)
	}

	if _, err := LookPath("prisma", "/nonexistent"); !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := LookPath(filepath.Join(bin, "missing"), ""); !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing absolute path, got %v", err)
	}
}

func TestExecRunner_CapturesOutputAndExitCode(t *testing.T) {
	bin := fakeTool(t, "prisma", `echo "args: $*"
echo "cache=$PRISMA_PYTHON_CACHE_DIR"
pwd
echo "Error: boom" 1>&2
exit 3
`)
	work := t.TempDir()
	e := env.FromList([]string{"PATH=" + bin})
	e.Set("PRISMA_PYTHON_CACHE_DIR", "/tmp/cache")

	out, err := ExecRunner{}.Run(context.Background(), Command{Name: "prisma", Args: []string{"db", "push"}, Dir: work, Env: e})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", out.ExitCode)
	}
	if !strings.Contains(out.Stdout, "args: db push") || !strings.Contains(out.Stdout, "cache=/tmp/cache") {
		t.Errorf("stdout = %q", out.Stdout)
	}
	resolvedWork, _ := filepath.EvalSymlinks(work)
	if !strings.Contains(out.Stdout, work) && !strings.Contains(out.Stdout, resolvedWork) {
		t.Errorf("expected working dir %q in %q", work, out.Stdout)
	}
	if out.Stderr != "Error: boom\n" {
		t.Errorf("stderr = %q", out.Stderr)
	}
}

func TestExecRunner_NotFound(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), Command{Name: "definitely-not-a-tool", Env: env.FromList([]string{"PATH=" + t.TempDir()})})
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if out.ExitCode != NotLaunched {
		t.Errorf("exit code = %d, want NotLaunched", out.ExitCode)
	}
}

func TestSynchronize_EndToEndWithFakeTool(t *testing.T) {
	bin := fakeTool(t, "prisma", `if [ -f "$PWD/schema.prisma" ] && [ "$3" = "--accept-data-loss" ]; then
  echo "The database is already in sync with the Prisma schema."
  exit 0
fi
echo "schema not found in $PWD" 1>&2
exit 1
`)
	s := New(Config{Tool: "prisma", BinDir: bin}, WithLogger(quietLogger()))

	res := s.Synchronize(context.Background(), Request{
		SchemaPath:     writeSchema(t),
		AcceptDataLoss: true,
		Env:            env.FromList([]string{"PATH=/usr/bin:/bin"}),
	})
	if res.Outcome != AlreadyInSync {
		t.Fatalf("outcome = %v, stderr=%q err=%v", res.Outcome, res.Stderr, res.Err())
	}
}

func TestSynchronize_TimeoutIsFailure(t *testing.T) {
	bin := fakeTool(t, "prisma", "exec sleep 5\n")
	s := New(Config{Tool: "prisma", BinDir: bin, Timeout: 100 * time.Millisecond}, WithLogger(quietLogger()))

	res := s.Synchronize(context.Background(), Request{SchemaPath: writeSchema(t), Env: env.FromList([]string{"PATH=/usr/bin:/bin"})})
	if res.Outcome != Failed || res.Failure.Kind != LaunchFailure {
		t.Fatalf("expected LaunchFailure on timeout, got %+v", res)
	}
	if !errors.Is(res.Err(), context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", res.Err())
	}
}
