package tunnel

import "time"

// RetryInterval is the minimum time between connect attempts while the peer
// is down.
const RetryInterval = 5 * time.Second

// Pacer spaces connect attempts at a fixed interval.
// It is not safe for concurrent use.
type Pacer struct {
	interval time.Duration
	last     time.Time
	attempts int
}

// NewPacer creates a Pacer. A non-positive interval selects RetryInterval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = RetryInterval
	}
	return &Pacer{interval: interval}
}

// Mark records an attempt at now.
func (p *Pacer) Mark(now time.Time) {
	p.last = now
	p.attempts++
}

// Due reports whether strictly more than the interval has passed since the
// last attempt.
func (p *Pacer) Due(now time.Time) bool {
	return now.Sub(p.last) > p.interval
}

// Reset clears the attempt history.
func (p *Pacer) Reset() {
	p.last = time.Time{}
	p.attempts = 0
}

// Attempts returns the number of attempts since the last Reset.
func (p *Pacer) Attempts() int {
	return p.attempts
}

// Interval returns the configured interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
