package privilege

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sc-go/internal/sc"
)

// AllowSudoEnv must be set to a truthy value before any command is run
// through sudo.
const AllowSudoEnv = "SC_ALLOW_SUDO"

var ErrSudoNotAllowed = errors.New("sudo not allowed: set " + AllowSudoEnv + "=1 to permit elevation")

// Runner runs external commands, optionally elevated.
type Runner interface {
	// Run executes name with args and returns its stdout.
	Run(ctx context.Context, sudo bool, name string, args ...string) ([]byte, error)

	// LookPath reports where name is on PATH.
	LookPath(name string) (string, error)
}

// AllowSudo reports whether elevation is permitted by the environment.
func AllowSudo() bool {
	switch os.Getenv(AllowSudoEnv) {
	case "", "0", "false", "False", "FALSE", "no":
		return false
	}
	return true
}

// Command returns the argv that Run would execute.
func Command(sudo bool, name string, args ...string) ([]string, error) {
	argv := append([]string{name}, args...)
	if !sudo {
		return argv, nil
	}
	if !AllowSudo() {
		return nil, ErrSudoNotAllowed
	}
	return append([]string{"sudo", "-n"}, argv...), nil
}

// Render returns a shell-safe preview of the command for dry runs and logs.
// It does not check whether sudo is allowed.
func Render(sudo bool, name string, args ...string) string {
	argv := append([]string{name}, args...)
	if sudo {
		argv = append([]string{"sudo", "-n"}, argv...)
	}
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = quote(a)
	}
	return strings.Join(quoted, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("@%+=:,./-_", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger sc.Logger
}

var _ Runner = (*ExecRunner)(nil)

func NewExecRunner(logger sc.Logger) *ExecRunner {
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, sudo bool, name string, args ...string) ([]byte, error) {
	argv, err := Command(sudo, name, args...)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("running command", "cmd", Render(sudo, name, args...))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), exitError(argv[0], err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// exitError wraps an exec error with the command's stderr.
func exitError(name string, err error, stderr []byte) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out: %w", name, err)
	}
	msg := strings.TrimSpace(string(stderr))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && msg != "" {
		return fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), msg)
	}
	return fmt.Errorf("running %s: %w", name, err)
}
