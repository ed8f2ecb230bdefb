package util

import "errors"

type CtlExitCode int

const (
	Success        CtlExitCode = 0
	GeneralError   CtlExitCode = 1
	PartialSuccess CtlExitCode = 2
)

// CtlError is returned by commands that need to exit with a specific exit code.
type CtlError struct {
	err  error
	code CtlExitCode
}

func NewCtlError(err error, code CtlExitCode) *CtlError {
	return &CtlError{err: err, code: code}
}

func (e *CtlError) Error() string {
	return e.err.Error()
}

func (e *CtlError) Unwrap() error {
	return e.err
}

func (e *CtlError) ExitCode() CtlExitCode {
	return e.code
}

// ExitCode returns the exit code for the error returned by a command.
func ExitCode(err error) CtlExitCode {
	if err == nil {
		return Success
	}
	var ctlErr *CtlError
	if errors.As(err, &ctlErr) {
		return ctlErr.code
	}
	return GeneralError
}
