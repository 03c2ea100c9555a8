// Package vpn implements VPN configuration parsing and connection
// management for the TV Bridge backend.
// This file contains the process launcher abstraction, including the
// elevation wrapper used for operations that need root privileges.
package vpn

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result holds the captured output of an external process invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner launches an external process and captures its output.
//
// Run returns an error only when the process could not be started at all
// (launcher missing, context cancelled). A process that starts and exits
// non-zero is reported through Result.ExitCode with a nil error, so
// callers can interpret the captured error stream themselves.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands directly with os/exec.
type ExecRunner struct{}

// Run executes the command and captures stdout, stderr and the exit code.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// elevationCommand is the privilege-escalation launcher. pkexec shows the
// desktop polkit prompt, which matches how the GUI clients behave.
const elevationCommand = "pkexec"

// pkexec exit codes for a dismissed or failed authorization prompt.
const (
	pkexecExitDismissed     = 126
	pkexecExitNotAuthorized = 127
)

// elevatedRunner wraps another Runner so every command runs through the
// elevation launcher.
type elevatedRunner struct {
	inner Runner
}

// Elevated returns a Runner that executes each command through pkexec,
// prompting the user for elevated privileges.
func Elevated(inner Runner) Runner {
	return elevatedRunner{inner: inner}
}

func (e elevatedRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	elevated := append([]string{name}, args...)
	return e.inner.Run(ctx, elevationCommand, elevated...)
}
