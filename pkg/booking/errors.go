package booking

import "fmt"

// ErrorKind classifies the terminal failures a booking operation can
// surface. Transient obstacles (missing optional field, absent consent
// banner, stale session) are absorbed internally and never reach here.
type ErrorKind string

const (
	// ErrKindAuthFieldNotFound means a login field could not be located.
	ErrKindAuthFieldNotFound ErrorKind = "auth_field_not_found"

	// ErrKindLoginTimeout means neither login success condition resolved.
	ErrKindLoginTimeout ErrorKind = "login_timeout"

	// ErrKindStructuralFill means the fill aborted on a step whose
	// silent failure would corrupt the booking (the different-address
	// radio), as opposed to an individually skippable field.
	ErrKindStructuralFill ErrorKind = "structural_fill_failure"

	// ErrKindSubmissionStep means the review/submit pipeline failed at
	// some stage. The pipeline is never resumed; a retry restarts from
	// a fresh fill.
	ErrKindSubmissionStep ErrorKind = "submission_step_failure"

	// ErrKindPrecondition means an operation was attempted from an
	// illegal state, e.g. submit before a successful fill.
	ErrKindPrecondition ErrorKind = "precondition_violation"
)

// Error is a terminal booking failure. When a page state existed at the
// time of failure it carries the screenshot path, which is the
// operator's primary recovery artifact.
type Error struct {
	Kind       ErrorKind
	Stage      string
	Screenshot string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at %s", e.Kind, e.Stage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, stage, screenshot string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Screenshot: screenshot, Err: err}
}
