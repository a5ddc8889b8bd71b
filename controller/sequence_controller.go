package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"motion-logger/models"
	"motion-logger/services/schedule"
	"motion-logger/utils"
)

// Status messages shown while a sequence runs.
const (
	StatusIdle      = "Idle"
	StatusPreparing = "Preparing to record..."
	StatusRecording = "Recording"
	StatusCompleted = "Recording completed"
	StatusStopped   = "Recording stopped"
)

// Announcer accepts spoken cues. announce.Gate satisfies it.
type Announcer interface {
	Request(text string)
}

// StatusEvent is pushed to status subscribers on every change.
type StatusEvent struct {
	Message  string         `json:"message"`
	Activity string         `json:"activity"`
	Index    int            `json:"index"`
	Total    int            `json:"total"`
	State    schedule.State `json:"state"`
	At       time.Time      `json:"at"`
}

// Status is the full view served to the control surface.
type Status struct {
	Recording bool              `json:"recording"`
	Message   string            `json:"message"`
	Activity  string            `json:"activity"`
	Sequence  schedule.Snapshot `json:"sequence"`
	Session   *SessionInfo      `json:"session,omitempty"`
	LastFile  string            `json:"last_file,omitempty"`
}

// SequenceOptions holds the pre-notice placement used for every sequence.
type SequenceOptions struct {
	PreNoticeMode  models.PreNoticeMode
	PreNoticeValue float64
}

// SequenceOptionsFrom converts the YAML schedule section.
func SequenceOptionsFrom(cfg utils.ScheduleConfig) (SequenceOptions, error) {
	mode, err := models.ParsePreNoticeMode(cfg.PreNoticeMode)
	if err != nil {
		return SequenceOptions{}, err
	}
	return SequenceOptions{PreNoticeMode: mode, PreNoticeValue: cfg.PreNoticeValue}, nil
}

// SequenceController runs an activity sequence over a recording session.
// It starts the recorder, lets the scheduler drive labels and cues, and
// stops the recorder when the sequence completes or is cancelled.
type SequenceController struct {
	recorder  *RecordingController
	announcer Announcer
	sched     *schedule.Scheduler
	clock     utils.Clock
	opts      SequenceOptions

	mu       sync.Mutex
	message  string
	lastFile string

	events *Hub[StatusEvent]
}

// NewSequenceController wires a scheduler between recorder and announcer.
func NewSequenceController(recorder *RecordingController, announcer Announcer, opts SequenceOptions, clock utils.Clock) *SequenceController {
	if clock == nil {
		clock = utils.WallClock
	}
	sc := &SequenceController{
		recorder:  recorder,
		announcer: announcer,
		clock:     clock,
		opts:      opts,
		message:   StatusIdle,
		events:    NewHub[StatusEvent](),
	}
	sc.sched = schedule.New(schedule.Hooks{
		Announce:    announcer.Request,
		SetActivity: recorder.SetCurrentActivity,
		Progress:    sc.onProgress,
		IsRecording: recorder.IsRecording,
		Finished:    sc.onFinished,
		Halted:      sc.onHalted,
	}, clock)
	return sc
}

// ─── commands ───────────────────────────────────────────────────────────

// StartSequence starts a recording and walks seq over it. The recording is
// not started when seq is rejected, and a storage failure aborts the
// sequence before any cue is spoken.
func (sc *SequenceController) StartSequence(seq []models.ActivitySpec) (string, error) {
	if err := schedule.Validate(seq); err != nil {
		return "", err
	}
	switch sc.sched.State() {
	case schedule.Armed, schedule.Running:
		return "", models.ErrSequenceRunning
	}

	sc.setMessage(StatusPreparing, schedule.Progress{Total: len(seq)})
	path, err := sc.recorder.Start()
	if err != nil {
		sc.setMessage(StatusIdle, schedule.Progress{})
		return "", err
	}

	if err := sc.sched.Start(seq, sc.opts.PreNoticeMode, sc.opts.PreNoticeValue); err != nil {
		if _, stopErr := sc.recorder.Stop(); stopErr != nil {
			utils.L().Warn("stop after rejected sequence: %v", stopErr)
		}
		sc.setMessage(StatusIdle, schedule.Progress{})
		return "", err
	}
	return path, nil
}

// StartRecording starts a session without a sequence; labels come from
// SetCurrentActivity.
func (sc *SequenceController) StartRecording() (string, error) {
	path, err := sc.recorder.Start()
	if err != nil {
		return "", err
	}
	sc.setMessage(StatusRecording, schedule.Progress{Activity: sc.recorder.CurrentActivity()})
	return path, nil
}

// StopRecording stops the session from outside the sequence. A running
// sequence halts quietly: no cue is spoken after it returns. A session
// that ended with a storage error still reports its path.
func (sc *SequenceController) StopRecording() (string, error) {
	path, err := sc.recorder.Stop()
	sc.sched.Halt()
	if path == "" {
		return "", err
	}
	sc.mu.Lock()
	sc.lastFile = path
	sc.mu.Unlock()
	sc.setMessage(StatusStopped, schedule.Progress{})
	return path, err
}

// Cancel ends the running sequence through the normal stop path, which
// stops the recording and announces its end.
func (sc *SequenceController) Cancel() error {
	return sc.sched.Cancel()
}

// SetCurrentActivity labels subsequent rows by hand.
func (sc *SequenceController) SetCurrentActivity(name string) {
	sc.recorder.SetCurrentActivity(name)
	if sc.recorder.IsRecording() {
		sc.setMessage(StatusRecording, schedule.Progress{Activity: sc.recorder.CurrentActivity()})
	}
}

// Wait blocks until the scheduler loop of the current sequence has exited.
func (sc *SequenceController) Wait() {
	sc.sched.Wait()
}

// ─── status ─────────────────────────────────────────────────────────────

// Status reports the recording, the sequence position and the last message.
func (sc *SequenceController) Status() Status {
	sc.mu.Lock()
	st := Status{Message: sc.message, LastFile: sc.lastFile}
	sc.mu.Unlock()

	st.Sequence = sc.sched.Snapshot()
	st.Activity = sc.recorder.CurrentActivity()
	if info, ok := sc.recorder.Session(); ok {
		st.Recording = true
		st.Session = &info
	}
	return st
}

// CurrentActivity returns the label attached to new rows.
func (sc *SequenceController) CurrentActivity() string {
	return sc.recorder.CurrentActivity()
}

// Elapsed returns the time since the running sequence started.
func (sc *SequenceController) Elapsed() time.Duration {
	return sc.sched.Snapshot().Elapsed
}

// Remaining returns the sequence time left, never negative.
func (sc *SequenceController) Remaining() time.Duration {
	return sc.sched.Snapshot().Remaining
}

// Events returns the hub carrying status changes.
func (sc *SequenceController) Events() *Hub[StatusEvent] {
	return sc.events
}

// ─── scheduler hooks (run with the scheduler lock held) ─────────────────

func (sc *SequenceController) onProgress(p schedule.Progress) {
	msg := fmt.Sprintf("%s: %s (%d/%d)", StatusRecording, p.Activity, p.Index+1, p.Total)
	sc.setMessage(msg, p)
}

func (sc *SequenceController) onFinished(final schedule.State) {
	path, err := sc.recorder.Stop()
	if path != "" {
		sc.mu.Lock()
		sc.lastFile = path
		sc.mu.Unlock()
	}
	switch {
	case err == nil:
		utils.L().Info("sequence %s, recording saved to %s", final, path)
	case errors.Is(err, models.ErrSessionInactive):
	default:
		utils.L().Error("stop recording after sequence: %v", err)
	}
	sc.announcer.Request(schedule.EndOfRecording)
	sc.setMessage(StatusCompleted, schedule.Progress{State: final})
}

func (sc *SequenceController) onHalted() {
	sc.setMessage(StatusStopped, schedule.Progress{State: schedule.Cancelled})
}

func (sc *SequenceController) setMessage(msg string, p schedule.Progress) {
	sc.mu.Lock()
	sc.message = msg
	sc.mu.Unlock()

	sc.events.Publish(StatusEvent{
		Message:  msg,
		Activity: p.Activity,
		Index:    p.Index,
		Total:    p.Total,
		State:    p.State,
		At:       sc.clock.Now(),
	})
}
