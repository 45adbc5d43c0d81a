package monitoring

import (
	"sync"
	"time"

	"github.com/banshee-data/sholl/internal/timeutil"
)

// ProgressLogger turns (done, total) updates into throttled log lines.
// Its Report method matches sampler.ProgressFunc.
type ProgressLogger struct {
	mu       sync.Mutex
	label    string
	interval time.Duration
	clock    timeutil.Clock
	start    time.Time
	last     time.Time
	logged   bool
}

// NewProgressLogger returns a logger that emits at most one line per interval,
// plus a final line when done reaches total. A nil clock uses wall time.
func NewProgressLogger(label string, interval time.Duration, clock timeutil.Clock) *ProgressLogger {
	clock = timeutil.OrReal(clock)
	return &ProgressLogger{
		label:    label,
		interval: interval,
		clock:    clock,
		start:    clock.Now(),
	}
}

// Report records progress and logs it when the interval has elapsed.
func (p *ProgressLogger) Report(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	finished := total > 0 && done >= total
	if p.logged && !finished && now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	p.logged = true

	pct := 0.0
	if total > 0 {
		pct = 100 * float64(done) / float64(total)
	}
	if finished {
		Logf("[%s] done: %d/%d in %v", p.label, done, total, now.Sub(p.start).Round(time.Millisecond))
		return
	}
	Logf("[%s] %d/%d (%.0f%%)", p.label, done, total, pct)
}
