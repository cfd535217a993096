package cmderr

import (
	"errors"
	"fmt"
	"os"
)

// ExitErr carries the process exit code along with the error caused it.
type ExitErr struct {
	Code  int
	Cause error
}

func (x ExitErr) Error() string { return x.Cause.Error() }

func (x ExitErr) Unwrap() error { return x.Cause }

// ExitOnErr writes error to os.Stderr and calls os.Exit with the code
// from ExitErr or 1 by default. Does nothing if err is nil.
func ExitOnErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitCode(err))
	}
}

// ExitCode returns the exit code for err: 0 for nil, the code of ExitErr
// found in the chain, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var e ExitErr
	if errors.As(err, &e) {
		return e.Code
	}
	return 1
}
