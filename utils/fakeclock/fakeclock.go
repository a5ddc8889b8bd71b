// Package fakeclock provides a manually advanced utils.Clock for tests.
package fakeclock

import (
	"sync"
	"time"

	"motion-logger/utils"
)

// Clock only moves when Advance is called. Timers and tickers created from
// it fire synchronously inside Advance, in deadline order.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
}

type ticker struct{ *timer }

func (t ticker) Stop() { t.timer.Stop() }

type timer struct {
	clock    *Clock
	ch       chan time.Time
	deadline time.Time
	period   time.Duration
	armed    bool
}

// New returns a clock reading start.
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTimer returns a one-shot timer due d from now.
func (c *Clock) NewTimer(d time.Duration) utils.Timer {
	return c.add(d, 0)
}

// NewTicker returns a ticker firing every d.
func (c *Clock) NewTicker(d time.Duration) utils.Ticker {
	if d <= 0 {
		panic("fakeclock: non-positive interval for NewTicker")
	}
	return ticker{c.add(d, d)}
}

func (c *Clock) add(d, period time.Duration) *timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{
		clock:    c,
		ch:       make(chan time.Time, 1),
		deadline: c.now.Add(d),
		period:   period,
		armed:    true,
	}
	c.timers = append(c.timers, t)
	if d <= 0 && period == 0 {
		t.fire(c.now)
	}
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.now.Add(d)
	for {
		next := c.earliest(target)
		if next == nil {
			break
		}
		c.now = next.deadline
		next.fire(c.now)
	}
	c.now = target
}

// PendingTimers reports how many one-shot timers are armed and not yet due.
func (c *Clock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.armed && t.period == 0 {
			n++
		}
	}
	return n
}

func (c *Clock) earliest(limit time.Time) *timer {
	var best *timer
	for _, t := range c.timers {
		if !t.armed || t.deadline.After(limit) {
			continue
		}
		if best == nil || t.deadline.Before(best.deadline) {
			best = t
		}
	}
	return best
}

// fire delivers now without blocking; callers hold clock.mu.
func (t *timer) fire(now time.Time) {
	select {
	case t.ch <- now:
	default:
	}
	if t.period > 0 {
		t.deadline = t.deadline.Add(t.period)
	} else {
		t.armed = false
	}
}

func (t *timer) C() <-chan time.Time { return t.ch }

func (t *timer) Reset(d time.Duration) bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	was := t.armed
	t.deadline = c.now.Add(d)
	t.armed = true
	if d <= 0 && t.period == 0 {
		t.fire(c.now)
	}
	return was
}

func (t *timer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	was := t.armed
	t.armed = false
	return was
}
