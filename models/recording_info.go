package models

import (
	"fmt"
	"time"
)

// RecordingInfo describes a closed recording file on disk.
type RecordingInfo struct {
	Name       string    `json:"name"`
	Size       string    `json:"size"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"timestamp"`
	Path       string    `json:"path"`
}

// FormatFileSize renders a byte count as "1.2 MB", "3.4 KB" or "56 B".
func FormatFileSize(bytes int64) string {
	kb := float64(bytes) / 1024.0
	mb := kb / 1024.0
	switch {
	case mb >= 1.0:
		return fmt.Sprintf("%.1f MB", mb)
	case kb >= 1.0:
		return fmt.Sprintf("%.1f KB", kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
