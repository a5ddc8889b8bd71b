package controller

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"motion-logger/models"
	"motion-logger/services/schedule"
	"motion-logger/utils/fakeclock"
)

type cueLog struct {
	mu   sync.Mutex
	cues []string
}

func (c *cueLog) Request(text string) {
	c.mu.Lock()
	c.cues = append(c.cues, text)
	c.mu.Unlock()
}

func (c *cueLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cues...)
}

type sequenceRig struct {
	t     *testing.T
	clock *fakeclock.Clock
	rec   *RecordingController
	cues  *cueLog
	sc    *SequenceController
}

func newSequenceRig(t *testing.T, dir string) *sequenceRig {
	t.Helper()
	clock := fakeclock.New(epoch)
	rec := NewRecordingController(RecordingOptions{Dir: dir, BatchSize: 50}, clock)
	cues := &cueLog{}
	sc := NewSequenceController(rec, cues, SequenceOptions{PreNoticeMode: models.PreNoticePercentage, PreNoticeValue: 50}, clock)
	t.Cleanup(sc.Wait)
	return &sequenceRig{t: t, clock: clock, rec: rec, cues: cues, sc: sc}
}

func (r *sequenceRig) advance(d time.Duration, wantCues int) {
	r.t.Helper()
	r.clock.Advance(d)
	require.Eventually(r.t, func() bool {
		return len(r.cues.all()) == wantCues &&
			(r.clock.PendingTimers() == 1 || r.sc.sched.State().Terminal())
	}, time.Second, time.Millisecond)
}

var walkRun = []models.ActivitySpec{{Name: "walk", DurationSeconds: 10}, {Name: "run", DurationSeconds: 5}}

func TestSequenceRunsToCompletion(t *testing.T) {
	r := newSequenceRig(t, filepath.Join(t.TempDir(), "MotionSensor"))
	events, unsubscribe := r.sc.Events().Subscribe(16)
	defer unsubscribe()

	path, err := r.sc.StartSequence(walkRun)
	require.NoError(t, err)
	require.Equal(t, "walk", r.sc.CurrentActivity())
	require.Equal(t, "Recording: walk (1/2)", r.sc.Status().Message)
	require.Equal(t, StatusPreparing, (<-events).Message)
	require.Equal(t, "Recording: walk (1/2)", (<-events).Message)

	r.rec.Enqueue(accelSample(0))
	r.advance(5*time.Second, 2)
	r.rec.Enqueue(accelSample(1))

	r.advance(5*time.Second, 2)
	require.Eventually(t, func() bool { return r.sc.CurrentActivity() == "run" }, time.Second, time.Millisecond)
	require.Equal(t, "Recording: run (2/2)", r.sc.Status().Message)
	require.Equal(t, 5*time.Second, r.sc.Remaining())
	require.Equal(t, 10*time.Second, r.sc.Elapsed())
	r.rec.Enqueue(accelSample(2))

	r.advance(5*time.Second, 3)
	require.Eventually(t, func() bool { return r.sc.sched.State() == schedule.Completed }, time.Second, time.Millisecond)

	require.Equal(t, []string{
		"Get ready to walk for 10 seconds",
		"Get ready to run",
		"End of recording",
	}, r.cues.all())
	require.False(t, r.rec.IsRecording())

	st := r.sc.Status()
	require.Equal(t, StatusCompleted, st.Message)
	require.Equal(t, path, st.LastFile)
	require.False(t, st.Recording)

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"walk", "walk", "run"}, []string{rows[0].Activity, rows[1].Activity, rows[2].Activity})
}

func TestStopMidSequenceIsQuiet(t *testing.T) {
	r := newSequenceRig(t, filepath.Join(t.TempDir(), "MotionSensor"))
	path, err := r.sc.StartSequence(walkRun)
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		r.rec.Enqueue(accelSample(i))
	}
	r.advance(5*time.Second, 2)

	stopped, err := r.sc.StopRecording()
	require.NoError(t, err)
	require.Equal(t, path, stopped)

	r.clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, []string{"Get ready to walk for 10 seconds", "Get ready to run"}, r.cues.all())
	require.Equal(t, schedule.Cancelled, r.sc.sched.State())
	require.Equal(t, StatusStopped, r.sc.Status().Message)
	require.Len(t, readRows(t, path), 120)

	_, err = r.sc.StopRecording()
	require.ErrorIs(t, err, models.ErrSessionInactive)
}

func TestCancelAnnouncesEnd(t *testing.T) {
	r := newSequenceRig(t, filepath.Join(t.TempDir(), "MotionSensor"))
	path, err := r.sc.StartSequence(walkRun)
	require.NoError(t, err)

	require.NoError(t, r.sc.Cancel())
	require.False(t, r.rec.IsRecording())
	require.Equal(t, []string{"Get ready to walk for 10 seconds", "End of recording"}, r.cues.all())
	require.Equal(t, path, r.sc.Status().LastFile)

	require.ErrorIs(t, r.sc.Cancel(), models.ErrSequenceNotRunning)

	// a new sequence can follow
	_, err = r.sc.StartSequence(walkRun)
	require.NoError(t, err)
	require.NoError(t, r.sc.Cancel())
}

func TestStartSequenceRejections(t *testing.T) {
	r := newSequenceRig(t, filepath.Join(t.TempDir(), "MotionSensor"))

	_, err := r.sc.StartSequence(nil)
	require.ErrorIs(t, err, models.ErrEmptySequence)
	require.False(t, r.rec.IsRecording())

	_, err = r.sc.StartSequence([]models.ActivitySpec{{Name: "", DurationSeconds: 4}})
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.False(t, r.rec.IsRecording())

	_, err = r.sc.StartSequence(walkRun)
	require.NoError(t, err)
	_, err = r.sc.StartSequence(walkRun)
	require.ErrorIs(t, err, models.ErrSequenceRunning)
	require.NoError(t, r.sc.Cancel())
}

func TestStartSequenceStorageFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	r := newSequenceRig(t, filepath.Join(blocker, "MotionSensor"))
	_, err := r.sc.StartSequence(walkRun)

	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Empty(t, r.cues.all())
	require.Equal(t, schedule.Idle, r.sc.sched.State())
	require.Equal(t, StatusIdle, r.sc.Status().Message)
}

func TestManualRecording(t *testing.T) {
	r := newSequenceRig(t, filepath.Join(t.TempDir(), "MotionSensor"))
	path, err := r.sc.StartRecording()
	require.NoError(t, err)

	r.sc.SetCurrentActivity("stairs")
	r.rec.Enqueue(accelSample(0))
	require.Equal(t, "Recording", r.sc.Status().Message)
	require.True(t, r.sc.Status().Recording)

	_, err = r.sc.StopRecording()
	require.NoError(t, err)
	rows := readRows(t, path)
	require.Len(t, rows, 1)
	require.Equal(t, "stairs", rows[0].Activity)
	require.Empty(t, r.cues.all())
}
