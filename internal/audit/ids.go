package audit

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for tasks, scans and scan results.
// Implemented by UUIDv7Generator, SequenceGenerator and testutil.CounterGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator produces ids like "AUD-001", "AUD-002".
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	width  int
	next   int
}

// NewSequenceGenerator creates a generator whose first id is start+1.
func NewSequenceGenerator(prefix string, start int) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix, width: 3, next: start}
}

func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%0*d", g.prefix, g.width, g.next)
}

func (g *SequenceGenerator) Prefix() string { return g.prefix }

// Seed moves the sequence past last. It never moves it backwards.
func (g *SequenceGenerator) Seed(last int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last > g.next {
		g.next = last
	}
}

// SequenceSeeder is an IDGenerator that can resume from ids already in a
// repository. SequenceGenerator implements it.
type SequenceSeeder interface {
	Prefix() string
	Seed(last int)
}

// ParseSequence extracts n from an id of the form "<prefix>-<n>".
func ParseSequence(prefix, id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clock supplies wall time. Tests substitute testutil.FakeClock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock, reported in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
