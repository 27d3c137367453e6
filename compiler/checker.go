package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Checker runs an external type checker over a set of source files.
// Files are appended after Args.
type Checker struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
}

// DefaultChecker runs the TypeScript compiler without emitting output.
func DefaultChecker() *Checker {
	return &Checker{
		Command: "tsc",
		Args: []string{
			"--noEmit",
			"--strict",
			"--target", "es2017",
			"--moduleResolution", "node",
			"--lib", "es2017,dom",
		},
	}
}

// TypeCheckError reports a non-successful type-check run.
// ExitCode is -1 when the process could not be started.
type TypeCheckError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *TypeCheckError) Error() string {
	msg := fmt.Sprintf("type check %q failed", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit status %d", e.ExitCode)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *TypeCheckError) Unwrap() error { return e.Err }

func (c *Checker) String() string {
	return strings.Join(append([]string{c.Command}, c.Args...), " ")
}

// Check runs the checker synchronously and returns a *TypeCheckError unless
// it exits with status zero.
func (c *Checker) Check(ctx context.Context, files []string) error {
	if c.Command == "" {
		return &TypeCheckError{ExitCode: -1, Err: errors.New("no checker command configured")}
	}

	args := make([]string, 0, len(c.Args)+len(files))
	args = append(args, c.Args...)
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &TypeCheckError{
		Command:  c.String(),
		ExitCode: code,
		Output:   strings.TrimSpace(string(output)),
		Err:      err,
	}
}
