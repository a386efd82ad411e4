// Package executil provides command execution utilities.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Executor runs external commands.
type Executor interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
	// RunDir executes a command in a specific directory.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
	// RunInput executes a command with stdin connected to input.
	RunInput(ctx context.Context, input []byte, cmd string, args ...string) ([]byte, error)
}

// RealExecutor calls actual commands.
type RealExecutor struct{}

// Run executes a command and returns its stdout.
func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.run(ctx, "", nil, cmd, args...)
}

// RunDir executes a command in a specific directory.
func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.run(ctx, dir, nil, cmd, args...)
}

// RunInput executes a command with stdin connected to input.
func (e *RealExecutor) RunInput(ctx context.Context, input []byte, cmd string, args ...string) ([]byte, error) {
	return e.run(ctx, "", input, cmd, args...)
}

// run captures stdout in full and stderr capped at 500 bytes, so large or
// ANSI-polluted output cannot flood logs. On failure stderr becomes part of the
// error message and the original *exec.ExitError is preserved via wrapping so
// callers can inspect exit codes with errors.As.
func (e *RealExecutor) run(ctx context.Context, dir string, input []byte, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	if dir != "" {
		c.Dir = dir
	}
	if input != nil {
		c.Stdin = bytes.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &limitedWriter{buf: &stderr, max: maxStderrLen}

	if err := c.Run(); err != nil {
		where := ""
		if dir != "" {
			where = " in " + dir
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("exec %s%s: %s: %w", cmd, where, msg, err)
		}
		return stdout.Bytes(), fmt.Errorf("exec %s%s: %w", cmd, where, err)
	}
	return stdout.Bytes(), nil
}
