package wpcli

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotFound is returned in Result.Err when the wp-cli binary cannot be located
var ErrNotFound = errors.New("wp-cli not found")

// Result represents the outcome of a single wp-cli invocation
type Result struct {
	Command  []string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Err      error
}

// Success returns true if the command ran and exited with code 0
func (r *Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failed returns true if the command did not succeed for any reason
func (r *Result) Failed() bool {
	return !r.Success()
}

// Absent returns true if the command could not run because the tool is missing
func (r *Result) Absent() bool {
	return errors.Is(r.Err, ErrNotFound) || errors.Is(r.Err, exec.ErrNotFound)
}

// Output returns trimmed stdout
func (r *Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Diagnostic describes why the command failed, or "" on success
func (r *Result) Diagnostic() string {
	if r.Success() {
		return ""
	}
	if r.Absent() {
		return "wp-cli is not available"
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" && r.Err != nil {
		msg = r.Err.Error()
	}
	return fmt.Sprintf("%s: exit %d: %s", strings.Join(r.Command, " "), r.ExitCode, msg)
}

// AsError converts a failed result into an error, or nil on success
func (r *Result) AsError() error {
	if r.Success() {
		return nil
	}
	if r.Absent() {
		return ErrNotFound
	}
	return errors.New(r.Diagnostic())
}
