package main

import (
	"os"
	"strconv"

	"github.com/loykin/proxyboot/internal/common"
)

// ExitHandler lets tests observe process termination.
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

type DefaultExitHandler struct{}

func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{}
}

func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs through the current default logger and exits 1.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	common.GetLogger().WithComponent("main").Error(msg, append([]any{"error", err}, keyvals...)...)
	h.Exit(1)
}

// replaced in tests
var exitHandler ExitHandler = NewDefaultExitHandler()

// exitCodeError carries a process exit code out of a command's RunE.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if code == 0 && err == nil {
		return nil
	}
	return &exitCodeError{code: code, err: err}
}
