package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// stderrTail is how much of a failed command's stderr is kept in errors.
const stderrTail = 400

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is returned by ExecRunner when the command exits unsuccessfully.
type CommandError struct {
	Name     string
	Stderr   string
	Original error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Name, e.Original)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Name, e.Original, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Original
}

// ExecRunner runs commands with os/exec. The command is killed when ctx is done.
type ExecRunner struct {
	Logger *slog.Logger
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	logger.Debug("Executing command", "name", name, "args", redact(args))
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		tail := lastBytes(strings.TrimSpace(stderrBuf.String()), stderrTail)
		logger.Debug("Command failed", "name", name, "error", err, "stderr", tail, "elapsed", time.Since(start))
		return nil, &CommandError{Name: name, Stderr: tail, Original: err}
	}

	logger.Debug("Command finished", "name", name, "stdout_length", stdoutBuf.Len(), "elapsed", time.Since(start))
	return stdoutBuf.Bytes(), nil
}

// redact hides the cookie file path from logs.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--cookies" {
			out[i+1] = "<redacted>"
		}
	}
	return out
}

func lastBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
