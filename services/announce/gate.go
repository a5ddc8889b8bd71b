package announce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"motion-logger/utils"
)

// Announcement is one utterance request.
type Announcement struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	RequestedAt time.Time `json:"requested_at"`
}

// Speaker renders an announcement. Speak should return promptly once ctx
// is cancelled; cancellation means a newer announcement replaced this one.
type Speaker interface {
	Speak(ctx context.Context, a Announcement) error
}

// Gate forwards announcement requests to a Speaker when announcements are
// enabled. It holds a single pending slot: a new request overwrites any
// request not yet started and interrupts the one being spoken, so the
// latest cue always wins.
type Gate struct {
	speaker Speaker
	clock   utils.Clock
	enabled atomic.Bool

	mu        sync.Mutex
	pending   *Announcement
	interrupt context.CancelFunc // cancels the utterance in progress
	wake      chan struct{}

	requested   atomic.Uint64
	interrupted atomic.Uint64
}

// NewGate creates a gate in front of speaker.
func NewGate(speaker Speaker, enabled bool, clock utils.Clock) *Gate {
	if clock == nil {
		clock = utils.WallClock
	}
	g := &Gate{
		speaker: speaker,
		clock:   clock,
		wake:    make(chan struct{}, 1),
	}
	g.enabled.Store(enabled)
	return g
}

// SetEnabled turns announcements on or off. Disabling does not cut off
// an utterance already in progress.
func (g *Gate) SetEnabled(on bool) {
	g.enabled.Store(on)
}

// Enabled reports whether requests are forwarded.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// Request asks for text to be spoken. It never blocks and is a silent
// no-op while announcements are disabled.
func (g *Gate) Request(text string) {
	if !g.enabled.Load() || text == "" {
		return
	}
	a := &Announcement{
		ID:          uuid.NewString(),
		Text:        text,
		RequestedAt: g.clock.Now(),
	}

	g.mu.Lock()
	if g.pending != nil {
		g.interrupted.Add(1)
	}
	g.pending = a
	if g.interrupt != nil {
		g.interrupt()
		g.interrupt = nil
		g.interrupted.Add(1)
	}
	g.mu.Unlock()
	g.requested.Add(1)

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// Run delivers requests to the speaker until ctx is cancelled.
func (g *Gate) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			g.mu.Lock()
			if g.interrupt != nil {
				g.interrupt()
				g.interrupt = nil
			}
			g.mu.Unlock()
			return
		case <-g.wake:
		}

		for {
			g.mu.Lock()
			a := g.pending
			g.pending = nil
			if a == nil {
				g.mu.Unlock()
				break
			}
			speakCtx, cancel := context.WithCancel(ctx)
			g.interrupt = cancel
			g.mu.Unlock()

			err := g.speaker.Speak(speakCtx, *a)

			g.mu.Lock()
			if speakCtx.Err() == nil {
				g.interrupt = nil
			}
			g.mu.Unlock()
			cancel()

			if err != nil && !errors.Is(err, context.Canceled) {
				utils.L().Warn("announce %q: %v", a.Text, err)
			}
		}
	}
}

// Stats returns how many requests were accepted and how many of them
// replaced or cut off an earlier one.
func (g *Gate) Stats() (requested, interrupted uint64) {
	return g.requested.Load(), g.interrupted.Load()
}
