package run

import "errors"

const (
	exitCodeExecErr = 1
	exitCodeConfig  = 2
)

// runExitError carries the process exit code for a failed run.
type runExitError struct {
	code int
	err  error
}

func (e runExitError) Error() string { return e.err.Error() }
func (e runExitError) Unwrap() error { return e.err }
func (e runExitError) ExitCode() int { return e.code }

func configError(err error) error {
	return runExitError{code: exitCodeConfig, err: err}
}

func execError(err error) error {
	var re runExitError
	if errors.As(err, &re) {
		return err
	}
	return runExitError{code: exitCodeExecErr, err: err}
}
