// Package schemasync pushes a declared database schema with an external
// migration tool (`prisma db push`) and classifies the result.
//
// Synchronize never returns an error and never panics: every failure, including
// a missing schema file or a tool that cannot be launched, comes back as a
// Result whose Outcome is Failed. Callers decide whether that is fatal.
package schemasync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/util"
)

// Request describes one push. WorkDir defaults to the directory containing
// SchemaPath; a nil Env means the current process environment.
type Request struct {
	SchemaPath     string
	AcceptDataLoss bool
	WorkDir        string
	Env            *env.Env
}

// Config holds the tool settings shared by every request.
type Config struct {
	// Tool is the migration binary name or path.
	Tool string
	// BinDir is prefixed to PATH for the tool process.
	BinDir string
	// CacheDirEnv/CacheDir set the tool's cache directory variable.
	CacheDirEnv string
	CacheDir    string
	// Timeout bounds the tool process. Zero means wait indefinitely.
	Timeout time.Duration
}

// DefaultConfig returns the settings used inside the proxy container image.
func DefaultConfig() Config {
	return Config{
		Tool:        constants.DefaultSyncTool,
		BinDir:      constants.DefaultToolBinDir,
		CacheDirEnv: constants.DefaultCacheDirEnv,
		CacheDir:    constants.DefaultCacheDir,
	}
}

// Synchronizer runs schema pushes. The zero value is not usable; use New.
type Synchronizer struct {
	cfg    Config
	runner Runner
	logger *common.Logger
	now    func() time.Time
}

// Option customizes a Synchronizer.
type Option func(*Synchronizer)

// WithRunner replaces the process runner (tests use a spy).
func WithRunner(r Runner) Option {
	return func(s *Synchronizer) { s.runner = r }
}

// WithLogger replaces the logger.
func WithLogger(l *common.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// New creates a Synchronizer for cfg.
func New(cfg Config, opts ...Option) *Synchronizer {
	cfg.Tool = util.TrimWithDefault(cfg.Tool, constants.DefaultSyncTool)
	s := &Synchronizer{
		cfg:    cfg,
		runner: ExecRunner{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = common.GetLogger().WithComponent("schemasync")
	}
	return s
}

// Synchronize pushes the schema at req.SchemaPath and reports the result.
func (s *Synchronizer) Synchronize(ctx context.Context, req Request) (res Result) {
	started := s.now()
	res = Result{SchemaPath: req.SchemaPath, ExitCode: NotLaunched, StartedAt: started}
	logger := s.logger.WithSchema(req.SchemaPath).WithTool(s.cfg.Tool)
	defer func() {
		res.Duration = s.now().Sub(started)
	}()

	if err := checkSchemaFile(req.SchemaPath); err != nil {
		logger.Error("schema file not found", "error", err)
		return fail(res, MissingSchemaFile, "schema file not found", err)
	}
	logger.Info("found schema file")

	cmd := s.command(req)
	res.Command = cmd.Argv()

	logger.Info("syncing database schema (safe if tables already exist)",
		"args", strings.Join(cmd.Args, " "), "dir", cmd.Dir)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	completed, err := s.run(ctx, cmd)
	if err != nil {
		logger.Error("failed to run migration tool",
			"error", err, "command", strings.Join(res.Command, " "), "dir", cmd.Dir)
		res.Stdout, res.Stderr = completed.Stdout, completed.Stderr
		return fail(res, LaunchFailure, "could not run "+s.cfg.Tool, err)
	}

	res.ExitCode = completed.ExitCode
	res.Stdout = completed.Stdout
	res.Stderr = completed.Stderr

	logger.Info("migration tool finished", "exit_code", res.ExitCode)
	if res.Stdout != "" {
		logger.Debug("migration tool stdout", "stdout", res.Stdout)
	}
	if res.Stderr != "" {
		logger.Debug("migration tool stderr", "stderr", res.Stderr)
	}

	res.Outcome = Classify(res.ExitCode, res.Stdout)
	switch res.Outcome {
	case AlreadyInSync:
		logger.Info("database schema is already up to date", "outcome", res.Outcome.String())
	case Updated:
		logger.Info("database schema updated successfully", "outcome", res.Outcome.String())
	default:
		logger.Error("error syncing database schema", "exit_code", res.ExitCode, "stderr", res.Stderr)
		return fail(res, NonZeroExit, fmt.Sprintf("%s exited with code %d", s.cfg.Tool, res.ExitCode), nil)
	}
	return res
}

// Classify maps an exit code and stdout to an Outcome. The phrase check only
// picks between two successful outcomes; it never turns a failure into success
// or the other way round.
func Classify(exitCode int, stdout string) Outcome {
	if exitCode != 0 {
		return Failed
	}
	if strings.Contains(stdout, constants.AlreadyInSyncPhrase) {
		return AlreadyInSync
	}
	return Updated
}

func (s *Synchronizer) command(req Request) Command {
	args := []string{"db", "push"}
	if req.AcceptDataLoss {
		args = append(args, constants.AcceptDataLossFlag)
	}

	e := req.Env
	if e == nil {
		e = env.FromOS()
	}
	e = e.Clone()
	e.PrependPath(s.cfg.BinDir)
	if name, ok := util.TrimEmptyCheck(s.cfg.CacheDirEnv); ok && strings.TrimSpace(s.cfg.CacheDir) != "" {
		e.Set(name, s.cfg.CacheDir)
	}

	dir, ok := util.TrimEmptyCheck(req.WorkDir)
	if !ok {
		dir = filepath.Dir(req.SchemaPath)
	}
	return Command{Name: s.cfg.Tool, Args: args, Dir: dir, Env: e}
}

// run invokes the runner, turning a panic into an error.
func (s *Synchronizer) run(ctx context.Context, cmd Command) (completed Completed, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("migration tool runner panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			completed = Completed{ExitCode: NotLaunched}
			err = fmt.Errorf("runner panic: %v", r)
		}
	}()
	return s.runner.Run(ctx, cmd)
}

func checkSchemaFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty schema path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	// #nosec G304 -- schema path is operator configuration
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func fail(res Result, kind FailureKind, msg string, err error) Result {
	res.Outcome = Failed
	res.Failure = &Failure{Kind: kind, Message: msg, Err: err}
	return res
}
