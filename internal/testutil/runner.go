package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sc-go/internal/privilege"
)

// StubRunner is a privilege.Runner that returns canned output per command
// line and records every call.
type StubRunner struct {
	// Outputs maps "name arg1 arg2" to stdout.
	Outputs map[string]string
	// Errors maps "name arg1 arg2" to a failure.
	Errors map[string]error
	// Missing lists programs LookPath does not find.
	Missing []string

	mu    sync.Mutex
	Calls []RunnerCall
}

// RunnerCall is one recorded Run call.
type RunnerCall struct {
	Sudo bool
	Line string
}

var _ privilege.Runner = (*StubRunner)(nil)

func (r *StubRunner) Run(_ context.Context, sudo bool, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	r.Calls = append(r.Calls, RunnerCall{Sudo: sudo, Line: line})
	r.mu.Unlock()
	if err, ok := r.Errors[line]; ok {
		return nil, err
	}
	return []byte(r.Outputs[line]), nil
}

func (r *StubRunner) LookPath(name string) (string, error) {
	for _, m := range r.Missing {
		if m == name {
			return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
		}
	}
	return "/usr/bin/" + name, nil
}
