// Package core provides shared functionality for command handlers: exit
// codes, the per-stage I/O bundle, and uniform error reporting helpers.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Exit codes following POSIX conventions.
const (
	ExitSuccess   = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitNotFound  = 127
	ExitCancelled = 130
)

// CommandIO holds the standard I/O streams for one command stage plus the
// cancellation context the stage must poll at every blocking wait point.
// A fresh CommandIO is created per stage; injecting buffers makes handlers
// trivially testable.
type CommandIO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	Ctx context.Context
}

// DefaultIO returns a CommandIO wired to the process streams with a
// background context.
func DefaultIO() *CommandIO {
	return &CommandIO{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
		Ctx: context.Background(),
	}
}

// Context returns the cancellation context, defaulting to Background when
// none was set.
func (c *CommandIO) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Cancelled reports whether the stage has been cancelled. Handlers check
// this each loop iteration and return ExitCancelled when it fires.
func (c *CommandIO) Cancelled() bool {
	select {
	case <-c.Context().Done():
		return true
	default:
		return false
	}
}

// Errorf writes a formatted error message to stderr.
func (c *CommandIO) Errorf(format string, args ...any) {
	fmt.Fprintf(c.Err, format, args...)
}

// Printf writes a formatted message to stdout.
func (c *CommandIO) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Print writes a message to stdout.
func (c *CommandIO) Print(args ...any) {
	fmt.Fprint(c.Out, args...)
}

// Println writes a message to stdout with a newline.
func (c *CommandIO) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// UsageError prints a usage error and returns ExitUsage.
func UsageError(io *CommandIO, command, message string) int {
	io.Errorf("%s: %s\n", command, message)
	return ExitUsage
}

// FileError prints a file-related error and returns ExitFailure.
func FileError(io *CommandIO, command, path string, err error) int {
	io.Errorf("%s: %s: %v\n", command, path, err)
	return ExitFailure
}
