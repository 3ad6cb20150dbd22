package cli

import (
	"errors"

	"github.com/futureCreator/renote/internal/render"
	"github.com/futureCreator/renote/internal/tracker"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitAuth     = 3
	ExitFetch    = 4
	ExitTemplate = 5
)

// usageError marks bad flags, arguments or configuration.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErr(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	var (
		authErr     *tracker.AuthError
		fetchErr    *tracker.FetchExhaustedError
		tmplErr     *render.TemplateError
		sectionErr  *render.MissingSectionError
		usageErrVal *usageError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &authErr):
		return ExitAuth
	case errors.As(err, &fetchErr):
		return ExitFetch
	case errors.As(err, &tmplErr), errors.As(err, &sectionErr):
		return ExitTemplate
	case errors.As(err, &usageErrVal):
		return ExitUsage
	default:
		return ExitFailure
	}
}
