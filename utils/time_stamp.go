package utils

import (
	"fmt"
	"time"
)

// RecordingFileName returns the file name of a recording started at t:
//
//	Recording_YYYY_MM_DD_HH_mm_ss.csv
func RecordingFileName(t time.Time) string {
	return fmt.Sprintf("Recording_%s.csv", t.Format("2006_01_02_15_04_05"))
}
