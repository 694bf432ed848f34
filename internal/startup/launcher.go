package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/schemasync"
	"github.com/loykin/proxyboot/internal/util"
)

// ServerConfig describes the external proxy server process.
type ServerConfig struct {
	Command   string
	Host      string
	Port      int
	ExtraArgs []string
	// StopGrace is how long the child gets after SIGTERM before it is killed.
	StopGrace time.Duration
}

// Handoff is the process that takes over once preconditions pass.
type Handoff struct {
	Command string
	Args    []string
	Env     *env.Env
	Grace   time.Duration
}

// Launcher starts the external server and blocks until it exits, returning its
// exit code. An error means the process could not be started.
type Launcher interface {
	Launch(ctx context.Context, h Handoff) (int, error)
}

// BuildHandoff turns the server config into a command line:
// `<command> --config <path> --host <host> --port <port> [extra...]`.
func BuildHandoff(sc ServerConfig, configPath string, e *env.Env) Handoff {
	host := util.TrimWithDefault(sc.Host, constants.DefaultServerHost)
	port := sc.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}
	args := []string{"--host", host, "--port", strconv.Itoa(port)}
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	args = append(args, sc.ExtraArgs...)
	return Handoff{
		Command: util.TrimWithDefault(sc.Command, constants.DefaultServerCommand),
		Args:    args,
		Env:     e,
		Grace:   sc.StopGrace,
	}
}

// ExecLauncher runs the handoff with inherited stdio. Cancelling the context
// sends SIGTERM, then kills the child after the grace period.
type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, h Handoff) (int, error) {
	bin, err := schemasync.LookPath(h.Command, h.Env.Get(env.PathKey))
	if err != nil {
		return constants.ExitPrecondition, err
	}

	// #nosec G204 -- server command comes from operator configuration
	cmd := exec.CommandContext(ctx, bin, h.Args...)
	cmd.Env = h.Env.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	if h.Grace > 0 {
		cmd.WaitDelay = h.Grace
	} else {
		cmd.WaitDelay = 10 * time.Second
	}

	if err := cmd.Start(); err != nil {
		return constants.ExitPrecondition, fmt.Errorf("start %s: %w", h.Command, err)
	}
	err = cmd.Wait()
	// Wait reports ctx.Err() after a cancel even when the child exited on its
	// own terms, so the exit status is read from ProcessState.
	if state := cmd.ProcessState; state != nil {
		if state.Success() {
			return constants.ExitOK, nil
		}
		if code := state.ExitCode(); code > 0 {
			return code, nil
		}
		// terminated by a signal
		return 1, nil
	}
	return 1, err
}
