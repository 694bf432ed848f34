package schemasync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/proxyboot/internal/env"
)

const waitDelay = 2 * time.Second

// Command is a fully resolved process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  *env.Env
}

// Argv returns the command line as a slice, for logging and history.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Completed holds the captured output of a process that ran to exit.
type Completed struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner launches a process and waits for it. An error means the process could
// not be started or waited on; a non-zero exit is reported in Completed.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Completed, error)
}

// ExecRunner runs commands with os/exec, capturing stdout and stderr in memory.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (Completed, error) {
	bin, err := LookPath(c.Name, c.Env.Get(env.PathKey))
	if err != nil {
		return Completed{ExitCode: NotLaunched}, err
	}

	// #nosec G204 -- tool name and args come from operator configuration
	cmd := exec.CommandContext(ctx, bin, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env.Environ()
	// grandchildren holding the output pipes must not block Wait after cancel
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	out := Completed{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		out.ExitCode = exitErr.ExitCode()
		if out.ExitCode < 0 {
			// terminated by a signal
			out.ExitCode = 1
		}
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	out.ExitCode = NotLaunched
	return out, err
}

// LookPath resolves name against the given PATH value instead of the parent
// process PATH, so a PATH override reaches binary resolution too. Names that
// contain a path separator are returned as-is when they are executable.
func LookPath(name, pathValue string) (string, error) {
	if name == "" {
		return "", errors.New("empty command name")
	}
	if strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/') {
		if isExecutable(name) {
			return name, nil
		}
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	for _, dir := range filepath.SplitList(pathValue) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
