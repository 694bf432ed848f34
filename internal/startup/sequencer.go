// Package startup runs the pre-flight sequence of the proxy container and
// hands control to the proxy server:
//
//	KeyMissing   -> exit 1
//	KeyMalformed -> exit 1
//	KeyValid     -> SyncAttempted -> {SyncOk, SyncFailed (warn)} -> Handoff
//
// The key checks are hard gates. Schema sync is best effort unless
// FailOnSyncError is set.
package startup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/loykin/proxyboot/internal/common"
	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/providers"
	"github.com/loykin/proxyboot/internal/schemasync"
)

// Synchronizer is the schema push step.
type Synchronizer interface {
	Synchronize(ctx context.Context, req schemasync.Request) schemasync.Result
}

// Recorder persists sync results.
type Recorder interface {
	RecordSync(ctx context.Context, res schemasync.Result) error
}

// RecorderOpener opens a Recorder once the key gates have passed. A nil
// Recorder disables recording; the returned func releases it.
type RecorderOpener func(ctx context.Context) (Recorder, func())

// Waiter blocks until the database is reachable.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Config is the static part of a startup run.
type Config struct {
	Keys            KeyPolicy
	SchemaPath      string
	AcceptDataLoss  bool
	FailOnSyncError bool
	// ProxyConfigPath is exported to the child as CONFIG_FILE_PATH.
	ProxyConfigPath string
	// ServerBinDir is prefixed to the child's PATH.
	ServerBinDir string
	Server       ServerConfig
}

// Sequencer wires the startup steps together. Only Synchronizer and Launcher
// are required.
type Sequencer struct {
	cfg      Config
	env      *env.Env
	sync     Synchronizer
	launcher Launcher
	recorder Recorder
	opener   RecorderOpener
	waiter   Waiter
	report   func(path string) (*providers.Report, error)
	out      io.Writer
	logger   *common.Logger
}

// Option customizes a Sequencer.
type Option func(*Sequencer)

// WithEnv sets the environment the key is read from and the child inherits.
func WithEnv(e *env.Env) Option { return func(s *Sequencer) { s.env = e } }

// WithRecorder stores each sync result.
func WithRecorder(r Recorder) Option { return func(s *Sequencer) { s.recorder = r } }

// WithRecorderOpener opens the recorder lazily, after the key checks, and
// closes it once the sync result is stored.
func WithRecorderOpener(fn RecorderOpener) Option { return func(s *Sequencer) { s.opener = fn } }

// WithWaiter waits for the database before syncing.
func WithWaiter(w Waiter) Option { return func(s *Sequencer) { s.waiter = w } }

// WithProviderReport overrides how the proxy config is inspected.
func WithProviderReport(fn func(path string) (*providers.Report, error)) Option {
	return func(s *Sequencer) { s.report = fn }
}

// WithOutput sets where operator guidance is printed.
func WithOutput(w io.Writer) Option { return func(s *Sequencer) { s.out = w } }

// WithLogger replaces the logger.
func WithLogger(l *common.Logger) Option { return func(s *Sequencer) { s.logger = l } }

// New builds a Sequencer.
func New(cfg Config, sync Synchronizer, launcher Launcher, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:      cfg,
		sync:     sync,
		launcher: launcher,
		report:   providers.Load,
		out:      os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.env == nil {
		s.env = env.FromOS()
	}
	if s.logger == nil {
		s.logger = common.GetLogger().WithComponent("startup")
	}
	return s
}

// CheckKeys runs only the key gates, printing guidance on failure.
func (s *Sequencer) CheckKeys() (Preconditions, error) {
	pre, err := s.cfg.Keys.Validate(s.env)
	if err != nil {
		s.guide(err)
		return pre, err
	}
	s.logger.Info("master key present and well-formed", "key_env", s.cfg.Keys.normalized().EnvName)
	return pre, nil
}

// Run executes the whole sequence and returns the process exit code. The error
// explains a non-zero code that did not come from the child.
func (s *Sequencer) Run(ctx context.Context) (int, error) {
	if _, err := s.CheckKeys(); err != nil {
		return constants.ExitPrecondition, err
	}

	if s.waiter != nil {
		if err := s.waiter.Wait(ctx); err != nil {
			s.logger.Warn("database not reachable, attempting schema sync anyway", "error", err)
		}
	}

	res := s.sync.Synchronize(ctx, schemasync.Request{
		SchemaPath:     s.cfg.SchemaPath,
		AcceptDataLoss: s.cfg.AcceptDataLoss,
		Env:            s.env,
	})
	s.record(ctx, res)
	if !res.OK() {
		if s.cfg.FailOnSyncError {
			s.logger.Error("database initialization failed, aborting startup", "error", res.Err())
			return constants.ExitPrecondition, fmt.Errorf("schema sync: %w", res.Err())
		}
		s.logger.Warn("database initialization failed, but continuing with proxy startup", "error", res.Err())
	}

	s.reportProviders()

	h := BuildHandoff(s.cfg.Server, s.cfg.ProxyConfigPath, s.childEnv())
	s.logger.Info("handing off to proxy server", "command", h.Command, "args", h.Args)
	code, err := s.launcher.Launch(ctx, h)
	if err != nil {
		s.logger.Error("failed to launch proxy server", "error", err, "command", h.Command)
		return code, fmt.Errorf("handoff: %w", err)
	}
	return code, nil
}

func (s *Sequencer) childEnv() *env.Env {
	e := s.env.Clone()
	if s.cfg.ProxyConfigPath != "" {
		e.Set(constants.ConfigFilePathEnv, s.cfg.ProxyConfigPath)
	}
	e.PrependPath(s.cfg.ServerBinDir)
	return e
}

func (s *Sequencer) record(ctx context.Context, res schemasync.Result) {
	rec := s.recorder
	if rec == nil && s.opener != nil {
		r, release := s.opener(ctx)
		if release != nil {
			defer release()
		}
		rec = r
	}
	if rec == nil {
		return
	}
	if err := rec.RecordSync(ctx, res); err != nil {
		s.logger.Warn("failed to record schema sync result", "error", err)
	}
}

func (s *Sequencer) reportProviders() {
	if s.report == nil || s.cfg.ProxyConfigPath == "" {
		return
	}
	rep, err := s.report(s.cfg.ProxyConfigPath)
	if err != nil {
		s.logger.Warn("could not read proxy config for provider report", "error", err, "config", s.cfg.ProxyConfigPath)
		return
	}
	rep.Log(s.logger)
}

func (s *Sequencer) guide(err error) {
	var keyErr *KeyError
	if !errors.As(err, &keyErr) {
		return
	}
	for _, line := range keyErr.Guidance() {
		_, _ = fmt.Fprintln(s.out, "[STARTUP] "+line)
	}
}
