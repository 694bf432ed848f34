package schemasync

import (
	"fmt"
	"time"
)

// Outcome classifies a synchronization attempt.
type Outcome int

const (
	Failed Outcome = iota
	AlreadyInSync
	Updated
)

func (o Outcome) String() string {
	switch o {
	case AlreadyInSync:
		return "already_in_sync"
	case Updated:
		return "updated"
	default:
		return "failed"
	}
}

// FailureKind names why a synchronization failed.
type FailureKind int

const (
	MissingSchemaFile FailureKind = iota + 1
	LaunchFailure
	NonZeroExit
)

func (k FailureKind) String() string {
	switch k {
	case MissingSchemaFile:
		return "missing_schema_file"
	case LaunchFailure:
		return "launch_failure"
	case NonZeroExit:
		return "non_zero_exit"
	default:
		return "unknown"
	}
}

// Failure describes a failed synchronization. It is an error so callers can
// wrap or log it directly.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// NotLaunched is the ExitCode of a Result whose process never ran.
const NotLaunched = -1

// Result is the outcome of one Synchronize call. Failure is non-nil exactly
// when Outcome is Failed.
type Result struct {
	SchemaPath string
	Command    []string
	ExitCode   int
	Stdout     string
	Stderr     string
	Outcome    Outcome
	Failure    *Failure
	StartedAt  time.Time
	Duration   time.Duration
}

// OK reports whether the schema is in sync after the call.
func (r Result) OK() bool {
	return r.Outcome != Failed
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Launched reports whether the migration tool process was started.
func (r Result) Launched() bool {
	return r.ExitCode != NotLaunched
}
