package models

import (
	"fmt"
	"time"
)

// SourceKind identifies the motion sensor a sample came from.
type SourceKind int

const (
	SourceAccelerometer SourceKind = iota
	SourceGyroscope
	SourceMagnetometer
	SourceRotationVector
)

// SourceKinds lists every supported kind in CSV column order.
var SourceKinds = []SourceKind{
	SourceAccelerometer,
	SourceGyroscope,
	SourceMagnetometer,
	SourceRotationVector,
}

var sourceNames = map[SourceKind]string{
	SourceAccelerometer:  "accelerometer",
	SourceGyroscope:      "gyroscope",
	SourceMagnetometer:   "magnetometer",
	SourceRotationVector: "rotation_vector",
}

func (k SourceKind) String() string {
	if n, ok := sourceNames[k]; ok {
		return n
	}
	return "unknown"
}

// Axes returns the number of values a sample of this kind carries.
func (k SourceKind) Axes() int {
	if k == SourceRotationVector {
		return 4
	}
	return 3
}

// ParseSourceKind maps a sensor name ("accelerometer", "gyroscope", …) to its kind.
func ParseSourceKind(name string) (SourceKind, error) {
	for k, n := range sourceNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor %q", name)
}

func (k SourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SourceKind) UnmarshalText(b []byte) error {
	v, err := ParseSourceKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Sample is one timestamped reading from a single sensor.
// Values is never modified after capture; NewSample copies its input.
type Sample struct {
	TimestampMs int64      `json:"timestamp"`
	Kind        SourceKind `json:"sensorType"`
	Values      []float64  `json:"values"`
	Accuracy    int        `json:"accuracy"`
}

// NewSample captures a reading, copying values so the caller may reuse its slice.
func NewSample(kind SourceKind, ts time.Time, values []float64, accuracy int) Sample {
	v := make([]float64, len(values))
	copy(v, values)
	return Sample{
		TimestampMs: ts.UnixMilli(),
		Kind:        kind,
		Values:      v,
		Accuracy:    accuracy,
	}
}
