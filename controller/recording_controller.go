package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"motion-logger/models"
	"motion-logger/utils"
	"motion-logger/views"
)

// DefaultActivity labels rows recorded before any activity is set.
const DefaultActivity = "Unknown"

// RecordingOptions configures the recording pipeline.
type RecordingOptions struct {
	Dir             string
	FlushInterval   time.Duration
	BatchSize       int
	BufferSizeBytes int
}

// RecordingOptionsFrom converts the YAML recording section.
func RecordingOptionsFrom(cfg utils.RecordingConfig) RecordingOptions {
	return RecordingOptions{
		Dir:             cfg.Dir,
		FlushInterval:   time.Duration(cfg.FlushIntervalMs) * time.Millisecond,
		BatchSize:       cfg.BatchSize,
		BufferSizeBytes: cfg.BufferSizeKB * 1024,
	}
}

// SessionInfo describes the active recording session.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Path      string    `json:"path"`
	Activity  string    `json:"activity"`
	Pending   int       `json:"pending"`
	Enqueued  uint64    `json:"enqueued"`
	Written   uint64    `json:"written"`
	Dropped   uint64    `json:"dropped"`
}

// session owns the output file exclusively until stopped.
type session struct {
	id        uuid.UUID
	startedAt time.Time
	path      string
	writer    *views.RecordWriter
	buffer    *SampleBuffer

	closed    atomic.Bool
	producers atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

// RecordingController owns the lifecycle of the single recording session:
// it opens the file, runs the periodic flush, and on stop performs the
// final drain and closes the file before returning.
type RecordingController struct {
	opts  RecordingOptions
	clock utils.Clock

	mu      sync.Mutex // serialises Start and Stop
	current atomic.Pointer[session]
	label   atomic.Pointer[string]

	rowsWritten atomic.Uint64
}

// NewRecordingController creates a controller writing into opts.Dir.
func NewRecordingController(opts RecordingOptions, clock utils.Clock) *RecordingController {
	if clock == nil {
		clock = utils.WallClock
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	rc := &RecordingController{opts: opts, clock: clock}
	label := DefaultActivity
	rc.label.Store(&label)
	return rc
}

// Start opens a new recording file and begins the periodic flush. It
// fails with a SessionStateError when a session is active and with a
// StorageError when the file cannot be created.
func (rc *RecordingController) Start() (string, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.current.Load() != nil {
		return "", models.ErrSessionActive
	}

	now := rc.clock.Now()
	path, err := uniquePath(filepath.Join(rc.opts.Dir, utils.RecordingFileName(now)))
	if err != nil {
		return "", &models.StorageError{Op: "open", Path: rc.opts.Dir, Err: err}
	}
	w, err := views.OpenRecordWriter(path, rc.opts.BufferSizeBytes)
	if err != nil {
		utils.L().Error("start recording: %v", err)
		return "", &models.StorageError{Op: "open", Path: path, Err: err}
	}

	id := uuid.New()
	log := utils.L().With("session", id.String()[:8])
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        id,
		startedAt: now,
		path:      path,
		writer:    w,
		buffer:    NewSampleBuffer(w, rc.opts.BatchSize, log),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		s.buffer.Run(ctx, rc.clock, rc.opts.FlushInterval)
	}()

	rc.current.Store(s)
	log.Info("recording started  file=%s  flush=%s  batch=%d", path, rc.opts.FlushInterval, rc.opts.BatchSize)
	return path, nil
}

// Stop ends the active session. When it returns the flush loop has
// exited, every sample enqueued before Stop has been written and the file
// is closed. If the final drain fails the session still ends and the
// path comes back with a StorageError. Without an active session it
// returns ErrSessionInactive and touches nothing.
func (rc *RecordingController) Stop() (string, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	s := rc.current.Load()
	if s == nil {
		return "", models.ErrSessionInactive
	}

	// Refuse new samples, then wait out producers already past the check.
	s.closed.Store(true)
	rc.current.Store(nil)
	for s.producers.Load() > 0 {
		runtime.Gosched()
	}

	s.cancel()
	<-s.done

	log := s.buffer.log
	drainErr := s.buffer.Drain()
	enq, written, dropped := s.buffer.Stats()
	rc.rowsWritten.Add(written)

	if err := s.writer.Close(); err != nil {
		return s.path, &models.StorageError{Op: "close", Path: s.path, Err: err}
	}
	if drainErr != nil {
		log.Error("recording stopped with %d rows lost  (file=%s): %v", dropped, s.path, drainErr)
		return s.path, &models.StorageError{Op: "flush", Path: s.path, Err: drainErr}
	}
	log.Info("recording stopped  (enqueued=%d, written=%d, dropped=%d, file=%s)", enq, written, dropped, s.path)
	return s.path, nil
}

// Enqueue buffers a sample for the active session; without one it is a no-op.
func (rc *RecordingController) Enqueue(sample models.Sample) {
	s := rc.current.Load()
	if s == nil {
		return
	}
	s.producers.Add(1)
	defer s.producers.Add(-1)
	if s.closed.Load() {
		return
	}
	s.buffer.Enqueue(sample, *rc.label.Load())
}

// Flush runs one flush of the active session outside the periodic schedule.
func (rc *RecordingController) Flush() (int, error) {
	s := rc.current.Load()
	if s == nil {
		return 0, models.ErrSessionInactive
	}
	return s.buffer.Flush()
}

// SetCurrentActivity publishes the label attached to subsequent rows.
func (rc *RecordingController) SetCurrentActivity(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultActivity
	}
	rc.label.Store(&name)
}

// CurrentActivity returns the label attached to new rows.
func (rc *RecordingController) CurrentActivity() string {
	return *rc.label.Load()
}

// IsRecording reports whether a session is active.
func (rc *RecordingController) IsRecording() bool {
	return rc.current.Load() != nil
}

// ActivePath returns the file of the active session, or "".
func (rc *RecordingController) ActivePath() string {
	if s := rc.current.Load(); s != nil {
		return s.path
	}
	return ""
}

// Session describes the active session.
func (rc *RecordingController) Session() (SessionInfo, bool) {
	s := rc.current.Load()
	if s == nil {
		return SessionInfo{}, false
	}
	enq, written, dropped := s.buffer.Stats()
	return SessionInfo{
		ID:        s.id.String(),
		StartedAt: s.startedAt,
		Path:      s.path,
		Activity:  rc.CurrentActivity(),
		Pending:   s.buffer.Pending(),
		Enqueued:  enq,
		Written:   written,
		Dropped:   dropped,
	}, true
}

// RowsWritten returns the rows persisted by all finished sessions.
func (rc *RecordingController) RowsWritten() uint64 {
	return rc.rowsWritten.Load()
}

// uniquePath returns path, or path with a numeric suffix when a file of
// that name already exists.
func uniquePath(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	candidate := path
	for i := 1; i < 1000; i++ {
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	return "", fmt.Errorf("no free file name for %s", path)
}
