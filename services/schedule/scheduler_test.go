package schedule

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"motion-logger/models"
	"motion-logger/utils/fakeclock"
)

type harness struct {
	t         *testing.T
	clock     *fakeclock.Clock
	sched     *Scheduler
	recording atomic.Bool

	mu       sync.Mutex
	cues     []string
	labels   []string
	progress []Progress
	finished []State
	halted   int
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, clock: fakeclock.New(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))}
	h.recording.Store(true)
	h.sched = New(Hooks{
		Announce: func(text string) {
			h.mu.Lock()
			h.cues = append(h.cues, text)
			h.mu.Unlock()
		},
		SetActivity: func(name string) {
			h.mu.Lock()
			h.labels = append(h.labels, name)
			h.mu.Unlock()
		},
		Progress: func(p Progress) {
			h.mu.Lock()
			h.progress = append(h.progress, p)
			h.mu.Unlock()
		},
		IsRecording: h.recording.Load,
		Finished: func(final State) {
			h.mu.Lock()
			h.finished = append(h.finished, final)
			h.cues = append(h.cues, EndOfRecording)
			h.mu.Unlock()
		},
		Halted: func() {
			h.mu.Lock()
			h.halted++
			h.mu.Unlock()
		},
	}, h.clock)
	t.Cleanup(h.sched.Wait)
	return h
}

func (h *harness) announced() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.cues...)
}

func (h *harness) label() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.labels) == 0 {
		return ""
	}
	return h.labels[len(h.labels)-1]
}

// advance moves the clock by d and waits until the scheduler has either
// re-armed its timer or finished.
func (h *harness) advance(d time.Duration, wantCues int) {
	h.t.Helper()
	h.clock.Advance(d)
	require.Eventually(h.t, func() bool {
		if len(h.announced()) != wantCues {
			return false
		}
		return h.clock.PendingTimers() == 1 || h.sched.State().Terminal()
	}, time.Second, time.Millisecond)
}

func TestPreNoticeDelay(t *testing.T) {
	cases := []struct {
		name  string
		d     time.Duration
		mode  models.PreNoticeMode
		value float64
		want  time.Duration
	}{
		{"half", 10 * time.Second, models.PreNoticePercentage, 50, 5 * time.Second},
		{"quarter", 60 * time.Second, models.PreNoticePercentage, 25, 15 * time.Second},
		{"zero percent floors", 10 * time.Second, models.PreNoticePercentage, 0, time.Second},
		{"short activity floors", 500 * time.Millisecond, models.PreNoticePercentage, 50, time.Second},
		{"fixed", 10 * time.Second, models.PreNoticeFixedSeconds, 3, 7 * time.Second},
		{"fixed fractional", 10 * time.Second, models.PreNoticeFixedSeconds, 2.5, 7500 * time.Millisecond},
		{"fixed longer than activity", 10 * time.Second, models.PreNoticeFixedSeconds, 20, time.Second},
		{"negative percent", 10 * time.Second, models.PreNoticePercentage, -10, time.Second},
		{"zero duration", 0, models.PreNoticeFixedSeconds, 0, time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PreNoticeDelay(tc.d, tc.mode, tc.value)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got, MinPreNotice)
		})
	}
}

func TestTwoActivitiesHalfway(t *testing.T) {
	h := newHarness(t)
	seq := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}, {Name: "run", DurationSeconds: 5}}

	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))
	require.Equal(t, Running, h.sched.State())
	require.Equal(t, []string{"Get ready to walk for 10 seconds"}, h.announced())
	require.Equal(t, "walk", h.label())

	h.advance(5*time.Second, 2)
	require.Equal(t, "Get ready to run", h.announced()[1])
	require.Equal(t, "walk", h.label())

	// run is the last activity, so its start cue is not given.
	h.advance(5*time.Second, 2)
	require.Eventually(t, func() bool { return h.label() == "run" }, time.Second, time.Millisecond)

	h.advance(5*time.Second, 3)
	require.Eventually(t, func() bool { return h.sched.State() == Completed }, time.Second, time.Millisecond)

	require.Equal(t, []string{
		"Get ready to walk for 10 seconds",
		"Get ready to run",
		EndOfRecording,
	}, h.announced())
	require.Equal(t, []State{Completed}, h.finished)
}

func TestStartCueOnlyBeforeNonFinalActivity(t *testing.T) {
	h := newHarness(t)
	seq := []models.ActivitySpec{
		{Name: "sit", DurationSeconds: 10},
		{Name: "walk", DurationSeconds: 10},
		{Name: "run", DurationSeconds: 10},
	}
	require.NoError(t, h.sched.Start(seq, models.PreNoticeFixedSeconds, 3))

	h.advance(7*time.Second, 2)  // get ready to walk
	h.advance(3*time.Second, 3)  // start walk now
	h.advance(7*time.Second, 4)  // get ready to run
	h.advance(3*time.Second, 4)  // switch to run, no start cue
	h.advance(10*time.Second, 5) // end

	require.Equal(t, []string{
		"Get ready to sit for 10 seconds",
		"Get ready to walk",
		"Start walk now",
		"Get ready to run",
		EndOfRecording,
	}, h.announced())

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Equal(t, []string{"sit", "walk", "run"}, h.labels)
	require.Len(t, h.progress, 3)
	require.Equal(t, Progress{Index: 2, Total: 3, Activity: "run", State: Running}, h.progress[2])
}

func TestZeroDurationActivities(t *testing.T) {
	h := newHarness(t)
	seq := []models.ActivitySpec{{Name: "a", DurationSeconds: 0}, {Name: "b", DurationSeconds: 0}}
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))

	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return h.sched.State() == Completed }, time.Second, time.Millisecond)
	require.Equal(t, []string{"Get ready to a for 0 seconds", "Get ready to b", EndOfRecording}, h.announced())
}

func TestCancelStopsChain(t *testing.T) {
	h := newHarness(t)
	seq := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}, {Name: "run", DurationSeconds: 5}}
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))

	h.advance(5*time.Second, 2)
	require.NoError(t, h.sched.Cancel())
	require.Equal(t, Cancelled, h.sched.State())

	h.clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, []string{"Get ready to walk for 10 seconds", "Get ready to run", EndOfRecording}, h.announced())
	require.Equal(t, []State{Cancelled}, h.finished)
	require.Zero(t, h.clock.PendingTimers())

	require.ErrorIs(t, h.sched.Cancel(), models.ErrSequenceNotRunning)
}

func TestExternalStopHaltsQuietly(t *testing.T) {
	h := newHarness(t)
	seq := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}, {Name: "run", DurationSeconds: 5}}
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))

	h.recording.Store(false)
	h.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return h.sched.State() == Cancelled }, time.Second, time.Millisecond)

	require.Equal(t, []string{"Get ready to walk for 10 seconds"}, h.announced())
	h.mu.Lock()
	require.Empty(t, h.finished)
	require.Equal(t, 1, h.halted)
	h.mu.Unlock()
}

func TestStartRejections(t *testing.T) {
	h := newHarness(t)

	require.ErrorIs(t, h.sched.Start(nil, models.PreNoticePercentage, 50), models.ErrEmptySequence)
	var cfgErr *models.ConfigError
	require.ErrorAs(t, h.sched.Start([]models.ActivitySpec{{Name: "", DurationSeconds: 3}}, models.PreNoticePercentage, 50), &cfgErr)
	require.ErrorAs(t, h.sched.Start([]models.ActivitySpec{{Name: "walk", DurationSeconds: -1}}, models.PreNoticePercentage, 50), &cfgErr)

	huge := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10_000_000_000}, {Name: "run", DurationSeconds: 5}}
	require.ErrorAs(t, h.sched.Start(huge, models.PreNoticePercentage, 50), &cfgErr)
	require.Equal(t, Idle, h.sched.State())
	require.Empty(t, h.announced())
	require.NoError(t, Validate([]models.ActivitySpec{{Name: "walk", DurationSeconds: int(MaxDurationSeconds)}}))
	half := int(MaxDurationSeconds/2) + 1
	require.ErrorAs(t, Validate([]models.ActivitySpec{{Name: "a", DurationSeconds: half}, {Name: "b", DurationSeconds: half}}), &cfgErr)

	seq := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}}
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))
	require.ErrorIs(t, h.sched.Start(seq, models.PreNoticePercentage, 50), models.ErrSequenceRunning)
	require.NoError(t, h.sched.Cancel())

	// A finished scheduler can run again.
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))
	require.NoError(t, h.sched.Cancel())
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, Idle, h.sched.Snapshot().State)

	seq := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}, {Name: "run", DurationSeconds: 5}}
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))
	h.advance(5*time.Second, 2)

	snap := h.sched.Snapshot()
	require.Equal(t, Running, snap.State)
	require.Equal(t, 0, snap.Index)
	require.Equal(t, 2, snap.Total)
	require.Equal(t, "walk", snap.Activity)
	require.Equal(t, 5*time.Second, snap.Elapsed)
	require.Equal(t, 10*time.Second, snap.Remaining)

	require.NoError(t, h.sched.Cancel())
}

func TestHaltSkipsFinished(t *testing.T) {
	h := newHarness(t)
	require.False(t, h.sched.Halt())

	seq := []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}, {Name: "run", DurationSeconds: 5}}
	require.NoError(t, h.sched.Start(seq, models.PreNoticePercentage, 50))
	require.True(t, h.sched.Halt())
	require.Equal(t, Cancelled, h.sched.State())

	h.clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, []string{"Get ready to walk for 10 seconds"}, h.announced())

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Empty(t, h.finished)
	require.Equal(t, 1, h.halted)
}
