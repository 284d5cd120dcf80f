// Package harnesserrors contains typed errors returned by the system test
// harness. Orchestration code inspects these with errors.As to decide whether
// a failure degrades a single check, aborts the current testcase, or aborts
// the whole run.
//
// If multiple errors occur in some function (e.g., if several entities fail
// to stop), that function should return an error of type multierror.Error
// from package github.com/hashicorp/go-multierror that encapsulates those
// individual errors.
package harnesserrors

import (
	"fmt"
	"time"
)

// ErrInvalidArgument represents an error that occurs when some argument or
// configuration value is invalid or missing.
type ErrInvalidArgument struct {
	Name    string      // Name of the argument, e.g., "leaderElectionPattern"
	Value   interface{} // The invalid value
	Message string      // An optional message to include in the error message
}

func (err *ErrInvalidArgument) Error() (s string) {
	s = fmt.Sprintf("value %q is invalid for argument %s", err.Value, err.Name)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrNotFound is a generic error to be returned whenever some resource isn't
// found, e.g., an entity id with no matching cluster entity.
// Type and Message are optional and are omitted from the error message if not
// provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "entity" or "template"
	Value   string // Resource name, e.g., "broker_1"
	Message string
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrUnknownRole is returned when a role read from a topology or testcase
// document is not one of the closed set of roles the harness understands.
// Dispatching on an unknown role is always a hard failure.
type ErrUnknownRole struct {
	Role string
}

func (err *ErrUnknownRole) Error() string {
	return fmt.Sprintf("unknown cluster entity role %q", err.Role)
}

// ErrRemoteCommand is returned when a remote command finishes with a non-zero
// exit status or cannot be started at all.
type ErrRemoteCommand struct {
	Host     string
	Command  string
	ExitCode int
	Stderr   string
}

func (err *ErrRemoteCommand) Error() (s string) {
	s = fmt.Sprintf("remote command on %s exited with status %d: %s", err.Host, err.ExitCode, err.Command)
	if err.Stderr != "" {
		s = s + fmt.Sprintf("; stderr: %s", err.Stderr)
	}
	return
}

// ErrPidRegistrationTimeout is returned when the pid marker file written by a
// detached launch could not be read back within the configured ceiling.
// Callers are expected to tolerate this by leaving the entity unregistered.
type ErrPidRegistrationTimeout struct {
	Host       string
	MarkerPath string
	Ceiling    time.Duration
}

func (err *ErrPidRegistrationTimeout) Error() string {
	return fmt.Sprintf(
		"no pid line appeared in %s on %s within %s",
		err.MarkerPath, err.Host, err.Ceiling,
	)
}

// ErrUnsafePath is returned when a destructive remote operation targets a
// path outside the allow-listed prefix. It must abort the entire run.
type ErrUnsafePath struct {
	Host          string
	Path          string
	AllowedPrefix string
}

func (err *ErrUnsafePath) Error() string {
	return fmt.Sprintf(
		"refusing to remove %q on %s: path is outside %q",
		err.Path, err.Host, err.AllowedPrefix,
	)
}

// ErrMissingTemplate is returned when the template file for a role cannot be
// read while materializing entity configs.
type ErrMissingTemplate struct {
	Role     string
	Template string
}

func (err *ErrMissingTemplate) Error() string {
	if err.Role != "" {
		return fmt.Sprintf("config template %q for role %s is missing", err.Template, err.Role)
	}
	return fmt.Sprintf("config template %q is missing", err.Template)
}
