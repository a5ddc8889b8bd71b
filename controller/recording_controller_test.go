package controller

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"motion-logger/models"
	"motion-logger/utils/fakeclock"
	"motion-logger/views"
)

var epoch = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newRecorder(t *testing.T, batch int) (*RecordingController, *fakeclock.Clock) {
	t.Helper()
	clock := fakeclock.New(epoch)
	rc := NewRecordingController(RecordingOptions{
		Dir:           filepath.Join(t.TempDir(), "MotionSensor"),
		FlushInterval: time.Second,
		BatchSize:     batch,
	}, clock)
	return rc, clock
}

func accelSample(i int) models.Sample {
	return models.Sample{
		TimestampMs: epoch.UnixMilli() + int64(i),
		Kind:        models.SourceAccelerometer,
		Values:      []float64{float64(i), -float64(i), 0.5},
	}
}

func readRows(t *testing.T, path string) []views.RecordedRow {
	t.Helper()
	rec, err := views.ReadRecordingFile(path)
	require.NoError(t, err)
	return rec.Rows
}

func TestStartCreatesNamedFile(t *testing.T) {
	rc, _ := newRecorder(t, 10)

	path, err := rc.Start()
	require.NoError(t, err)
	require.Equal(t, "Recording_2024_05_01_09_30_00.csv", filepath.Base(path))
	require.True(t, rc.IsRecording())
	require.Equal(t, path, rc.ActivePath())

	_, err = rc.Start()
	require.ErrorIs(t, err, models.ErrSessionActive)

	stopped, err := rc.Stop()
	require.NoError(t, err)
	require.Equal(t, path, stopped)
	require.False(t, rc.IsRecording())
	require.Empty(t, rc.ActivePath())
}

func TestSecondSessionGetsFreshName(t *testing.T) {
	rc, _ := newRecorder(t, 10)

	first, err := rc.Start()
	require.NoError(t, err)
	_, err = rc.Stop()
	require.NoError(t, err)

	second, err := rc.Start()
	require.NoError(t, err)
	_, err = rc.Stop()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, "Recording_2024_05_01_09_30_00_1.csv", filepath.Base(second))
}

func TestFIFOWithoutLossAcrossFlushes(t *testing.T) {
	rc, clock := newRecorder(t, 64)
	path, err := rc.Start()
	require.NoError(t, err)

	const n = 1000
	for i := 0; i < n; i++ {
		rc.Enqueue(accelSample(i))
		if i%300 == 0 {
			_, err := rc.Flush()
			require.NoError(t, err)
		}
	}
	clock.Advance(time.Second)

	_, err = rc.Stop()
	require.NoError(t, err)

	rows := readRows(t, path)
	require.Len(t, rows, n)
	for i, row := range rows {
		require.Equal(t, strconv.Itoa(i), row.Channels[0], "row %d", i)
		require.Equal(t, DefaultActivity, row.Activity)
	}
	require.Equal(t, uint64(n), rc.RowsWritten())
}

func TestConcurrentProducersLoseNothing(t *testing.T) {
	rc, _ := newRecorder(t, 100)
	path, err := rc.Start()
	require.NoError(t, err)

	const producers, perProducer = 6, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				rc.Enqueue(models.Sample{
					TimestampMs: int64(i),
					Kind:        models.SourceGyroscope,
					Values:      []float64{float64(p), float64(i), 0},
				})
			}
		}(p)
	}
	wg.Wait()

	_, err = rc.Stop()
	require.NoError(t, err)

	rows := readRows(t, path)
	require.Len(t, rows, producers*perProducer)

	next := make(map[string]int)
	for _, row := range rows {
		p, i := row.Channels[3], row.Channels[4]
		require.Equal(t, strconv.Itoa(next[p]), i, "producer %s out of order", p)
		next[p]++
	}
}

func TestSecondStopLeavesFileUnchanged(t *testing.T) {
	rc, _ := newRecorder(t, 10)
	path, err := rc.Start()
	require.NoError(t, err)
	rc.Enqueue(accelSample(1))

	_, err = rc.Stop()
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	rc.Enqueue(accelSample(2))
	_, err = rc.Stop()
	require.ErrorIs(t, err, models.ErrSessionInactive)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestStopReportsLostTail(t *testing.T) {
	rc, _ := newRecorder(t, 10)
	path, err := rc.Start()
	require.NoError(t, err)

	s := rc.current.Load()
	s.buffer.flushMu.Lock()
	s.buffer.sink = &memSink{fail: true}
	s.buffer.flushMu.Unlock()
	rc.Enqueue(accelSample(1))

	got, err := rc.Stop()
	require.Equal(t, path, got)
	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "flush", storageErr.Op)
	require.Equal(t, path, storageErr.Path)
	require.False(t, rc.IsRecording())
	require.Empty(t, readRows(t, path))

	_, err = rc.Stop()
	require.ErrorIs(t, err, models.ErrSessionInactive)
}

func TestUnwritableDirectoryFailsStart(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	rc := NewRecordingController(RecordingOptions{Dir: filepath.Join(blocker, "MotionSensor")}, fakeclock.New(epoch))
	_, err := rc.Start()

	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	require.False(t, rc.IsRecording())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLabelsFollowCurrentActivity(t *testing.T) {
	rc, _ := newRecorder(t, 10)
	path, err := rc.Start()
	require.NoError(t, err)

	rc.Enqueue(accelSample(0))
	rc.SetCurrentActivity("walk")
	rc.Enqueue(accelSample(1))
	rc.Enqueue(models.Sample{TimestampMs: 2, Kind: models.SourceMagnetometer, Values: []float64{7, 8, 9}})
	rc.SetCurrentActivity("  ")
	rc.Enqueue(accelSample(3))

	_, err = rc.Stop()
	require.NoError(t, err)

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	require.Equal(t, []string{DefaultActivity, "walk", "walk", DefaultActivity},
		[]string{rows[0].Activity, rows[1].Activity, rows[2].Activity, rows[3].Activity})

	// last-known fill
	require.Equal(t, "1", rows[2].Channels[0])
	require.Equal(t, "7", rows[2].Channels[6])
	require.Equal(t, "0", rows[0].Channels[6])
	require.Equal(t, "7", rows[3].Channels[6])
}

func TestEnqueueWithoutSessionIsNoop(t *testing.T) {
	rc, _ := newRecorder(t, 10)
	rc.Enqueue(accelSample(0))

	_, err := rc.Flush()
	require.ErrorIs(t, err, models.ErrSessionInactive)
	_, ok := rc.Session()
	require.False(t, ok)
}

func TestSessionInfo(t *testing.T) {
	rc, _ := newRecorder(t, 10)
	path, err := rc.Start()
	require.NoError(t, err)
	rc.SetCurrentActivity("sit")
	rc.Enqueue(accelSample(0))
	rc.Enqueue(accelSample(1))

	info, ok := rc.Session()
	require.True(t, ok)
	require.Equal(t, path, info.Path)
	require.Equal(t, "sit", info.Activity)
	require.Equal(t, uint64(2), info.Enqueued)
	require.Equal(t, 2, info.Pending)
	require.Equal(t, epoch, info.StartedAt)

	_, err = rc.Stop()
	require.NoError(t, err)
}
