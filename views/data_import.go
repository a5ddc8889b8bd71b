package views

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relvacode/iso8601"

	"motion-logger/models"
)

// RecordedRow is one parsed data line of a recording file.
type RecordedRow struct {
	Timestamp time.Time
	Channels  [models.ChannelCount]string
	Activity  string
}

// Recording is a fully parsed recording file.
type Recording struct {
	Header []string
	Rows   []RecordedRow
}

// Summary condenses a recording for display.
type Summary struct {
	Rows       int           `json:"rows" yaml:"rows"`
	First      time.Time     `json:"first" yaml:"first"`
	Last       time.Time     `json:"last" yaml:"last"`
	Span       time.Duration `json:"span" yaml:"span"`
	Activities []string      `json:"activities" yaml:"activities"`
}

// ReadRecordingFile parses the recording at path.
func ReadRecordingFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return ReadRecording(f)
}

// ReadRecording parses a header line followed by data rows.
func ReadRecording(r io.Reader) (*Recording, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := ValidateHeader(header); err != nil {
		return nil, err
	}

	rec := &Recording{Header: header}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rec.Rows)+1, err)
		}
		ts, err := iso8601.ParseString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("row %d timestamp %q: %w", len(rec.Rows)+1, fields[0], err)
		}
		row := RecordedRow{Timestamp: ts.UTC(), Activity: fields[len(fields)-1]}
		copy(row.Channels[:], fields[1:1+models.ChannelCount])
		rec.Rows = append(rec.Rows, row)
	}
	return rec, nil
}

// Summary returns row count, time span and activities in order of first appearance.
func (r *Recording) Summary() Summary {
	s := Summary{Rows: len(r.Rows)}
	if len(r.Rows) == 0 {
		return s
	}
	s.First = r.Rows[0].Timestamp
	s.Last = r.Rows[len(r.Rows)-1].Timestamp
	s.Span = s.Last.Sub(s.First)
	seen := map[string]bool{}
	for _, row := range r.Rows {
		if !seen[row.Activity] {
			seen[row.Activity] = true
			s.Activities = append(s.Activities, row.Activity)
		}
	}
	return s
}
