package schedule

import (
	"fmt"
	"math"
	"sync"
	"time"

	"motion-logger/models"
	"motion-logger/utils"
)

// MinPreNotice is the earliest a "get ready" cue may fire inside an activity.
const MinPreNotice = time.Second

// EndOfRecording is announced when a sequence completes or is cancelled.
const EndOfRecording = "End of recording"

// StartCue announces the first activity of a sequence.
func StartCue(a models.ActivitySpec) string {
	return fmt.Sprintf("Get ready to %s for %d seconds", a.Name, a.DurationSeconds)
}

// PreNoticeCue announces the next activity ahead of time.
func PreNoticeCue(name string) string { return "Get ready to " + name }

// StartNowCue announces that the next activity begins.
func StartNowCue(name string) string { return "Start " + name + " now" }

// PreNoticeDelay returns how far into an activity of length d the "get
// ready" cue fires: value percent of d, or value seconds before its end.
// The result is truncated to milliseconds and never below MinPreNotice.
func PreNoticeDelay(d time.Duration, mode models.PreNoticeMode, value float64) time.Duration {
	ms := d.Milliseconds()
	var delayMs int64
	switch mode {
	case models.PreNoticeFixedSeconds:
		delayMs = ms - int64(value*1000)
	default:
		delayMs = int64(float64(ms) * value / 100.0)
	}
	delay := time.Duration(delayMs) * time.Millisecond
	if delay < MinPreNotice {
		delay = MinPreNotice
	}
	return delay
}

// MaxDurationSeconds is the longest activity a time.Duration can hold.
const MaxDurationSeconds = math.MaxInt64 / int64(time.Second)

// Validate rejects an empty sequence and activities without a name or
// with a duration outside 0..MaxDurationSeconds. The whole sequence is
// held to the same bound.
func Validate(seq []models.ActivitySpec) error {
	if len(seq) == 0 {
		return models.ErrEmptySequence
	}
	var total int64
	for i, a := range seq {
		if a.Name == "" {
			return &models.ConfigError{Msg: fmt.Sprintf("activity %d has no name", i)}
		}
		if a.DurationSeconds < 0 {
			return &models.ConfigError{Msg: fmt.Sprintf("activity %q has a negative duration", a.Name)}
		}
		if int64(a.DurationSeconds) > MaxDurationSeconds {
			return &models.ConfigError{Msg: fmt.Sprintf("activity %q lasts longer than %d seconds", a.Name, MaxDurationSeconds)}
		}
		total += int64(a.DurationSeconds)
		if total > MaxDurationSeconds {
			return &models.ConfigError{Msg: fmt.Sprintf("sequence lasts longer than %d seconds", MaxDurationSeconds)}
		}
	}
	return nil
}

// State is the lifecycle position of a Scheduler.
type State int

const (
	Idle State = iota
	Armed
	Running
	Completed
	Cancelled
)

var stateNames = [...]string{"idle", "armed", "running", "completed", "cancelled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions will happen in this run.
func (s State) Terminal() bool { return s == Completed || s == Cancelled }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown scheduler state %q", b)
}

// Progress is published whenever the current activity changes.
type Progress struct {
	Index    int
	Total    int
	Activity string
	State    State
}

// Hooks connect the scheduler to its collaborators. They may run with the
// scheduler's lock held and must not call back into the Scheduler.
type Hooks struct {
	// Announce requests a spoken cue.
	Announce func(text string)
	// SetActivity publishes the label of the activity now in progress.
	SetActivity func(name string)
	// Progress reports index/total changes. Optional.
	Progress func(p Progress)
	// IsRecording reports whether the recording session is still active.
	// When it turns false the chain stops at its next step. Optional.
	IsRecording func() bool
	// Finished runs once when the sequence completes or Cancel is called.
	Finished func(final State)
	// Halted runs when the chain stops because the recording went away. Optional.
	Halted func()
}

// ScheduleState is the data of one run.
type ScheduleState struct {
	Sequence       []models.ActivitySpec
	Index          int
	StartedAt      time.Time
	PreNoticeMode  models.PreNoticeMode
	PreNoticeValue float64
}

// Snapshot is a point-in-time view for status displays.
type Snapshot struct {
	State     State         `json:"state"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Activity  string        `json:"activity"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
}

type phase int

const (
	phasePreNotice phase = iota // waiting to announce the next activity
	phaseAdvance                // waiting to switch to the next activity
	phaseFinish                 // waiting for the last activity to end
)

// Scheduler walks an activity sequence on a single reusable timer.
//
//	Idle → Armed(0) → Running(i) → … → Completed
//	                      └──────────→ Cancelled
type Scheduler struct {
	clock utils.Clock
	hooks Hooks

	mu    sync.Mutex
	state State
	run   *ScheduleState
	stop  chan struct{}
	done  chan struct{}
}

// New creates an idle scheduler.
func New(hooks Hooks, clock utils.Clock) *Scheduler {
	if clock == nil {
		clock = utils.WallClock
	}
	return &Scheduler{clock: clock, hooks: hooks}
}

// Start begins a run over seq. It returns ErrEmptySequence for an empty
// sequence and ErrSequenceRunning while another run is active.
func (s *Scheduler) Start(seq []models.ActivitySpec, mode models.PreNoticeMode, value float64) error {
	if err := Validate(seq); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Armed || s.state == Running {
		return models.ErrSequenceRunning
	}

	s.run = &ScheduleState{
		Sequence:       append([]models.ActivitySpec(nil), seq...),
		StartedAt:      s.clock.Now(),
		PreNoticeMode:  mode,
		PreNoticeValue: value,
	}
	s.state = Armed
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	s.state = Running
	first := s.run.Sequence[0]
	s.setActivity(first.Name)
	s.announce(StartCue(first))
	s.progress()

	wait, ph := s.plan(0)
	utils.L().Info("sequence started  (%d activities, pre-notice=%s %.1f)", len(seq), mode, value)
	go s.loop(s.clock.NewTimer(wait), ph, s.stop, s.done)
	return nil
}

// Cancel stops a running sequence. No cue fires after Cancel returns. It
// returns ErrSequenceNotRunning outside the Running state.
func (s *Scheduler) Cancel() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return models.ErrSequenceNotRunning
	}
	s.state = Cancelled
	s.run = nil
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	utils.L().Info("sequence cancelled")
	if s.hooks.Finished != nil {
		s.hooks.Finished(Cancelled)
	}
	return nil
}

// Halt ends a running sequence without the Finished hook, as when the
// recording was stopped from outside. It reports whether a run was halted.
func (s *Scheduler) Halt() bool {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return false
	}
	s.state = Cancelled
	s.run = nil
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	utils.L().Info("sequence halted")
	if s.hooks.Halted != nil {
		s.hooks.Halted()
	}
	return true
}

// Wait blocks until the current run's timer loop has exited.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot reports the state, current activity and timing of the run.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.state}
	if s.run == nil {
		return snap
	}
	seq := s.run.Sequence
	snap.Index = s.run.Index
	snap.Total = len(seq)
	snap.Activity = seq[s.run.Index].Name
	snap.StartedAt = s.run.StartedAt
	snap.Elapsed = s.clock.Now().Sub(s.run.StartedAt)
	if r := models.TotalDuration(seq) - snap.Elapsed; r > 0 {
		snap.Remaining = r
	}
	return snap
}

// plan returns the first wait of activity i and what happens when it ends.
// Callers hold s.mu.
func (s *Scheduler) plan(i int) (time.Duration, phase) {
	d := s.run.Sequence[i].Duration()
	if i == len(s.run.Sequence)-1 {
		return d, phaseFinish
	}
	return PreNoticeDelay(d, s.run.PreNoticeMode, s.run.PreNoticeValue), phasePreNotice
}

func (s *Scheduler) loop(timer utils.Timer, ph phase, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C():
		}

		next, ok := s.step(ph)
		if !ok {
			return
		}
		ph = next.phase
		timer.Reset(next.wait)
	}
}

type stepResult struct {
	wait  time.Duration
	phase phase
}

// step acts on a timer expiry. It returns false when the loop must end.
func (s *Scheduler) step(ph phase) (stepResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return stepResult{}, false
	}
	if s.hooks.IsRecording != nil && !s.hooks.IsRecording() {
		s.state = Cancelled
		s.run = nil
		utils.L().Info("sequence halted: recording is no longer active")
		if s.hooks.Halted != nil {
			s.hooks.Halted()
		}
		return stepResult{}, false
	}

	i := s.run.Index
	seq := s.run.Sequence
	switch ph {
	case phasePreNotice:
		s.announce(PreNoticeCue(seq[i+1].Name))
		d := seq[i].Duration()
		if remaining := d - PreNoticeDelay(d, s.run.PreNoticeMode, s.run.PreNoticeValue); remaining > 0 {
			return stepResult{wait: remaining, phase: phaseAdvance}, true
		}
		return s.advance(), true

	case phaseAdvance:
		return s.advance(), true

	default:
		s.state = Completed
		s.run = nil
		utils.L().Info("sequence completed")
		if s.hooks.Finished != nil {
			s.hooks.Finished(Completed)
		}
		return stepResult{}, false
	}
}

// advance moves to the next activity. The "start now" cue is only given
// when that activity is not the last one.
func (s *Scheduler) advance() stepResult {
	next := s.run.Index + 1
	seq := s.run.Sequence
	if next < len(seq)-1 {
		s.announce(StartNowCue(seq[next].Name))
	}
	s.setActivity(seq[next].Name)
	s.run.Index = next
	s.progress()
	wait, ph := s.plan(next)
	return stepResult{wait: wait, phase: ph}
}

func (s *Scheduler) announce(text string) {
	if s.hooks.Announce != nil {
		s.hooks.Announce(text)
	}
}

func (s *Scheduler) setActivity(name string) {
	if s.hooks.SetActivity != nil {
		s.hooks.SetActivity(name)
	}
}

func (s *Scheduler) progress() {
	if s.hooks.Progress == nil {
		return
	}
	s.hooks.Progress(Progress{
		Index:    s.run.Index,
		Total:    len(s.run.Sequence),
		Activity: s.run.Sequence[s.run.Index].Name,
		State:    s.state,
	})
}
