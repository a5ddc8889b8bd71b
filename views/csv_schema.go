package views

import (
	"fmt"

	"motion-logger/models"
)

// Columns is the canonical column list of a recording file. The header
// written by RecordWriter comes from models.Row.CSVHeader; this copy is the
// reference the reader validates against.
var Columns = []string{
	"timestamp",
	"accelerometer_x", "accelerometer_y", "accelerometer_z",
	"gyroscope_x", "gyroscope_y", "gyroscope_z",
	"magnetometer_x", "magnetometer_y", "magnetometer_z",
	"rotation_vector_x", "rotation_vector_y", "rotation_vector_z", "rotation_vector_w",
	"activity",
}

// ValidateHeader reports whether header matches Columns exactly.
func ValidateHeader(header []string) error {
	if len(header) != len(Columns) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(Columns))
	}
	for i, c := range Columns {
		if header[i] != c {
			return fmt.Errorf("header column %d is %q, want %q", i, header[i], c)
		}
	}
	return nil
}

var _ models.CSVRowWriter = (*models.Row)(nil)
