package views

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"motion-logger/models"
)

// ErrWriterClosed is returned by Append after Close.
var ErrWriterClosed = errors.New("record writer closed")

// fileHandle is the subset of *os.File the writer needs.
type fileHandle interface {
	io.Writer
	io.Seeker
	io.Closer
	Truncate(size int64) error
}

// RecordWriter appends motion rows to a CSV recording file.
//
// Rows arrive in batches from the flush loop; each batch is encoded in
// memory, written and flushed as a unit. If any part of a batch fails, the
// file is truncated back to its size before the batch, so a batch is
// either fully on disk or absent.
type RecordWriter struct {
	mu     sync.Mutex
	path   string
	file   fileHandle
	buf    *bufio.Writer
	size   int64 // bytes committed so far
	rows   uint64
	closed bool
}

// OpenRecordWriter creates path (and its parent directory), writes the
// header line and flushes it. On any failure nothing is left on disk.
func OpenRecordWriter(path string, bufSizeBytes int) (*RecordWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}

	w := newRecordWriter(path, f, bufSizeBytes)
	if err := w.writeHeader(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	return w, nil
}

func newRecordWriter(path string, f fileHandle, bufSizeBytes int) *RecordWriter {
	if bufSizeBytes <= 0 {
		bufSizeBytes = 64 * 1024 // 64 KB default
	}
	return &RecordWriter{
		path: path,
		file: f,
		buf:  bufio.NewWriterSize(f, bufSizeBytes),
	}
}

func (w *RecordWriter) writeHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b bytes.Buffer
	cw := csv.NewWriter(&b)
	if err := cw.Write(models.Row{}.CSVHeader()); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	cw.Flush()
	if err := w.commit(b.Bytes()); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	return nil
}

// Append writes rows as one batch and flushes the stream once.
func (w *RecordWriter) Append(rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var b bytes.Buffer
	cw := csv.NewWriter(&b)
	for i := range rows {
		if err := cw.Write(rows[i].CSVRow()); err != nil {
			return fmt.Errorf("csv encode row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv encode batch: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.commit(b.Bytes()); err != nil {
		return fmt.Errorf("csv append %d rows to %s: %w", len(rows), w.path, err)
	}
	w.rows += uint64(len(rows))
	return nil
}

// commit writes p and flushes, rolling the file back on failure. Callers
// hold w.mu.
func (w *RecordWriter) commit(p []byte) error {
	_, err := w.buf.Write(p)
	if err == nil {
		err = w.buf.Flush()
	}
	if err != nil {
		w.rollback()
		return err
	}
	w.size += int64(len(p))
	return nil
}

func (w *RecordWriter) rollback() {
	w.buf.Reset(w.file)
	_ = w.file.Truncate(w.size)
	_, _ = w.file.Seek(w.size, io.SeekStart)
}

// Close flushes remaining data and closes the file. Calling Close on a
// closed writer is a no-op.
func (w *RecordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	ferr := w.buf.Flush()
	cerr := w.file.Close()
	if ferr != nil {
		return fmt.Errorf("csv flush on close: %w", ferr)
	}
	if cerr != nil {
		return fmt.Errorf("csv close: %w", cerr)
	}
	return nil
}

// Rows returns the number of data rows written (excludes header).
func (w *RecordWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}
