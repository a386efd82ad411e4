package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir   string
	Cmd   string
	Args  []string
	Input []byte
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps commands to their output. Keys are the command name
	// optionally followed by leading arguments (e.g., "gh" or "gh issue create");
	// the longest matching key wins.
	Outputs map[string][]byte

	// Errors maps commands to their error, keyed like Outputs.
	Errors map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", nil, cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, nil, cmd, args...)
}

// RunInput records the command with its stdin and returns configured output/error.
func (e *RecordingExecutor) RunInput(ctx context.Context, input []byte, cmd string, args ...string) ([]byte, error) {
	return e.record("", input, cmd, args...)
}

func (e *RecordingExecutor) record(dir string, input []byte, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{
		Dir:   dir,
		Cmd:   cmd,
		Args:  args,
		Input: input,
	})

	for n := len(args); n >= 0; n-- {
		key := strings.Join(append([]string{cmd}, args[:n]...), " ")
		out, hasOut := e.Outputs[key]
		err, hasErr := e.Errors[key]
		if hasOut || hasErr {
			return out, err
		}
	}
	return nil, nil
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
