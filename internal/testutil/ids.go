package testutil

import (
	"fmt"
	"sync"
)

// CounterGenerator returns "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic ids in golden snapshots. Unlike
// audit.SequenceGenerator it never pads, so ids read naturally in fixtures.
//
// Thread-safety: CounterGenerator is safe for concurrent use via internal mutex.
type CounterGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCounterGenerator creates a generator; an empty prefix means "id".
func NewCounterGenerator(prefix string) *CounterGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &CounterGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *CounterGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *CounterGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
