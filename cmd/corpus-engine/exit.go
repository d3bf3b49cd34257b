package main

import (
	"errors"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/registry"
)

// Process exit codes reported by the CLI.
const (
	exitOK            = 0
	exitGeneric       = 1
	exitNoSources     = 3
	exitAllRejected   = 4
	exitPublishFailed = 5
	exitAuth          = 6
)

// exitError pins a specific process exit code to an error. Commands wrap
// errors whose code the classifier cannot derive from a sentinel.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, fetch.ErrAllSourcesFailed):
		return exitNoSources
	case errors.Is(err, registry.ErrAuth):
		return exitAuth
	}
	return exitGeneric
}
