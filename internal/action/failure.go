package action

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an action stage failed.
type FailureKind string

const (
	KindTransport       FailureKind = "transport"
	KindRemoteJob       FailureKind = "remote_job"
	KindTimeout         FailureKind = "timeout"
	KindArtifactMissing FailureKind = "artifact_missing"
	KindParse           FailureKind = "parse"
	KindValidation      FailureKind = "validation"
)

// Failure is a stage failure carrying its kind and cause.
type Failure struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Stage
	}
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Fail builds a Failure for a stage.
func Fail(kind FailureKind, stage string, err error) *Failure {
	return &Failure{Kind: kind, Stage: stage, Err: err}
}

// Invalid marks err as a validation failure.
func Invalid(err error) *Failure {
	return &Failure{Kind: KindValidation, Stage: "invalid request", Err: err}
}

// KindOf returns the kind of the first Failure in err's chain, or "" if none.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// Outcome is the success flag and human-readable detail every action
// response carries.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Succeeded returns a successful Outcome.
func Succeeded(format string, args ...any) Outcome {
	return Outcome{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Failed returns a failed Outcome describing err.
func Failed(err error) Outcome {
	return Outcome{Success: false, Message: err.Error()}
}
