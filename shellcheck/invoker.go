package shellcheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultTimeout bounds a single linter run.
const DefaultTimeout = 10 * time.Second

var (
	ErrNotExecutable = errors.New("linter is not an executable file")
	ErrTimeout       = errors.New("linter timed out")
	ErrFailed        = errors.New("linter failed")
)

// ToolError describes a failed linter invocation.
type ToolError struct {
	Tool   string
	Err    error
	Output string
}

func NewToolError(tool string, err error) *ToolError {
	return &ToolError{Tool: tool, Err: err}
}

// WithOutput attaches the tool's diagnostic output.
func (e *ToolError) WithOutput(output string) *ToolError {
	e.Output = strings.TrimSpace(output)
	return e
}

func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Request is one linter process invocation.
type Request struct {
	// Path is the executable.
	Path string
	Args []string
	// Input is written to the process stdin.
	Input string
	// Dir is the working directory. Empty means the current one.
	Dir string
}

// Invoker runs the linter. Implementations return the process stdout.
type Invoker interface {
	Invoke(ctx context.Context, req Request) ([]byte, error)
}

// ExecInvoker runs the linter as a child process.
type ExecInvoker struct {
	// Timeout bounds each run; the process is killed when it expires.
	// Zero means DefaultTimeout.
	Timeout time.Duration
	// Charset is the encoding of the process stdin and stdout, by its
	// WHATWG name. Empty means UTF-8.
	Charset string
}

var _ Invoker = (*ExecInvoker)(nil)

func (e *ExecInvoker) Invoke(ctx context.Context, req Request) ([]byte, error) {
	enc, err := Charset(e.Charset)
	if err != nil {
		return nil, NewToolError(req.Path, err)
	}
	input, err := enc.NewEncoder().String(req.Input)
	if err != nil {
		return nil, NewToolError(req.Path, fmt.Errorf("encoding input as %s: %w", e.Charset, err))
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, req.Path, req.Args...)
	cmd.Dir = req.Dir
	cmd.Stdin = strings.NewReader(input)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, NewToolError(req.Path, fmt.Errorf("%w after %s", ErrTimeout, timeout)).
			WithOutput(stderr.String())
	}
	// shellcheck exits 1 when it has findings; only fail without output.
	if err != nil && stdout.Len() == 0 {
		return nil, NewToolError(req.Path, fmt.Errorf("%w: %w", ErrFailed, err)).
			WithOutput(stderr.String())
	}

	out, err := enc.NewDecoder().Bytes(stdout.Bytes())
	if err != nil {
		return nil, NewToolError(req.Path, fmt.Errorf("decoding output as %s: %w", e.Charset, err))
	}
	return out, nil
}

// Charset looks up an encoding by its WHATWG name, e.g. "windows-1252" or
// "shift_jis".
func Charset(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}

// ValidPath resolves path, looking it up on PATH when it has no directory
// part, and checks that it is a regular executable file.
func ValidPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotExecutable)
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotExecutable, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotExecutable, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrNotExecutable, resolved)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotExecutable, resolved)
	}
	return resolved, nil
}
