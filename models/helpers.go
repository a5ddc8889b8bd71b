package models

import (
	"strconv"
)

// ─── shared formatting helpers (package-private) ────────────────────────

func itoa(v int) string { return strconv.Itoa(v) }

// ftoa formats with the shortest representation that round-trips, never
// using an exponent or a locale separator.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVRowWriter is the interface every loggable model must satisfy.
type CSVRowWriter interface {
	CSVHeader() []string
	CSVRow() []string
}
