package scan

import (
	"sync"
	"time"

	"github.com/roach88/assetaudit/internal/audit"
)

// DefaultCooldown is how long the last emitted code is remembered.
const DefaultCooldown = 2 * time.Second

// Debouncer suppresses a decoded code equal to the previously emitted code
// until Cooldown has passed since that emission. Suppressed codes do not
// extend the window.
//
// Thread-safety: Allow is safe for concurrent use via internal mutex.
type Debouncer struct {
	mu       sync.Mutex
	cooldown time.Duration
	clock    audit.Clock
	last     string
	lastAt   time.Time
}

// NewDebouncer creates a Debouncer. Non-positive cooldown means
// DefaultCooldown; a nil clock means the system clock.
func NewDebouncer(cooldown time.Duration, clock audit.Clock) *Debouncer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if clock == nil {
		clock = audit.SystemClock{}
	}
	return &Debouncer{cooldown: cooldown, clock: clock}
}

// Allow reports whether code should produce a scan event and, if so,
// remembers it as the last emitted code.
func (d *Debouncer) Allow(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if d.last != "" && code == d.last && now.Sub(d.lastAt) < d.cooldown {
		return false
	}
	d.last = code
	d.lastAt = now
	return true
}

// Reset forgets the last emitted code.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = ""
	d.lastAt = time.Time{}
}
