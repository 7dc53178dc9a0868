package testutil

import (
	"fmt"
	"sync"
)

// StubIDGenerator is an sc.IDGenerator returning UUID-shaped ids in sequence,
// so isolation tests can script worker replies that echo the request id.
type StubIDGenerator struct {
	mu sync.Mutex
	n  int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return StubID(g.n)
}

// StubID is the nth id handed out by a fresh StubIDGenerator.
func StubID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}
