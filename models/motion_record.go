package models

import "time"

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ChannelCount is the number of value columns between timestamp and activity.
const ChannelCount = 13

// MissingValue is written for a channel that has not reported yet.
const MissingValue = "0"

// channelOffset is the first column of each kind inside Row.Channels.
var channelOffset = map[SourceKind]int{
	SourceAccelerometer:  0,
	SourceGyroscope:      3,
	SourceMagnetometer:   6,
	SourceRotationVector: 9,
}

// Row is one flattened output line: the latest known value of every
// channel at the moment a sample arrived.
type Row struct {
	TimestampMs int64
	Channels    [ChannelCount]string
	Activity    string
}

// CSVHeader returns the fixed column list of a recording file.
func (Row) CSVHeader() []string {
	return []string{
		"timestamp",
		"accelerometer_x", "accelerometer_y", "accelerometer_z",
		"gyroscope_x", "gyroscope_y", "gyroscope_z",
		"magnetometer_x", "magnetometer_y", "magnetometer_z",
		"rotation_vector_x", "rotation_vector_y", "rotation_vector_z", "rotation_vector_w",
		"activity",
	}
}

// CSVRow returns the row's fields in header order.
func (r *Row) CSVRow() []string {
	out := make([]string, 0, ChannelCount+2)
	out = append(out, FormatTimestamp(r.TimestampMs))
	for _, c := range r.Channels {
		if c == "" {
			c = MissingValue
		}
		out = append(out, c)
	}
	return append(out, r.Activity)
}

// FormatTimestamp renders epoch milliseconds in TimestampLayout.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimestampLayout)
}

// ChannelState tracks the last written value of every channel. It is owned
// by a single goroutine and is not safe for concurrent use.
type ChannelState struct {
	latest [ChannelCount]string
}

// NewChannelState returns a state with every channel at MissingValue.
func NewChannelState() *ChannelState {
	cs := &ChannelState{}
	cs.Reset()
	return cs
}

// Reset forgets every channel.
func (cs *ChannelState) Reset() {
	for i := range cs.latest {
		cs.latest[i] = MissingValue
	}
}

// Apply folds a sample into the state and returns the resulting row.
// Axes beyond len(s.Values) keep their previous value.
func (cs *ChannelState) Apply(s Sample, activity string) Row {
	off, ok := channelOffset[s.Kind]
	if ok {
		for i := 0; i < s.Kind.Axes() && i < len(s.Values); i++ {
			cs.latest[off+i] = ftoa(s.Values[i])
		}
	}
	return Row{
		TimestampMs: s.TimestampMs,
		Channels:    cs.latest,
		Activity:    activity,
	}
}
