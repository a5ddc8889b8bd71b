package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// ActivitySpec is one timed step of an activity sequence.
type ActivitySpec struct {
	Name            string `json:"name" yaml:"name"`
	DurationSeconds int    `json:"duration" yaml:"duration"`
}

// Duration returns the activity length as a time.Duration.
func (a ActivitySpec) Duration() time.Duration {
	return time.Duration(a.DurationSeconds) * time.Second
}

func (a ActivitySpec) String() string {
	return a.Name + ":" + itoa(a.DurationSeconds)
}

// UnmarshalYAML accepts the duration as whole seconds (30), a Go duration
// ("90s") or an ISO-8601 duration ("PT1M30S").
func (a *ActivitySpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name     string `yaml:"name"`
		Duration string `yaml:"duration"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	secs, err := ParseDurationSeconds(raw.Duration)
	if err != nil {
		return fmt.Errorf("activity %q: %w", raw.Name, err)
	}
	a.Name = raw.Name
	a.DurationSeconds = secs
	return nil
}

// ParseActivity parses the "name:duration" form used on the command line.
func ParseActivity(s string) (ActivitySpec, error) {
	name, dur, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return ActivitySpec{}, fmt.Errorf("activity %q: want name:duration", s)
	}
	secs, err := ParseDurationSeconds(dur)
	if err != nil {
		return ActivitySpec{}, fmt.Errorf("activity %q: %w", s, err)
	}
	return ActivitySpec{Name: name, DurationSeconds: secs}, nil
}

// ParseDurationSeconds converts an activity duration to whole seconds.
func ParseDurationSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %d", n)
		}
		return n, nil
	}
	var d time.Duration
	if strings.HasPrefix(strings.ToUpper(s), "P") {
		iso, err := duration.Parse(strings.ToUpper(s))
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		d = iso.ToTimeDuration()
	} else {
		gd, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		d = gd
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return int(math.Round(d.Seconds())), nil
}

// SequenceFile is the YAML layout of an activity sequence file.
type SequenceFile struct {
	Activities []ActivitySpec `yaml:"activities"`
}

// DecodeSequence reads an activity sequence from YAML. Both a top-level
// list and an "activities:" mapping are accepted.
func DecodeSequence(data []byte) ([]ActivitySpec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]

	var seq []ActivitySpec
	if doc.Kind == yaml.SequenceNode {
		if err := doc.Decode(&seq); err != nil {
			return nil, fmt.Errorf("decode sequence: %w", err)
		}
		return seq, nil
	}
	var file SequenceFile
	if err := doc.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}
	return file.Activities, nil
}

// TotalDuration sums the durations of a sequence.
func TotalDuration(seq []ActivitySpec) time.Duration {
	var total time.Duration
	for _, a := range seq {
		total += a.Duration()
	}
	return total
}

// PreNoticeMode selects how the "get ready" cue is placed inside an activity.
type PreNoticeMode int

const (
	// PreNoticePercentage fires the cue after value% of the activity.
	PreNoticePercentage PreNoticeMode = iota
	// PreNoticeFixedSeconds fires the cue value seconds before the activity ends.
	PreNoticeFixedSeconds
)

func (m PreNoticeMode) String() string {
	if m == PreNoticeFixedSeconds {
		return "fixed_seconds"
	}
	return "percentage"
}

// ParsePreNoticeMode accepts "percentage" or "fixed_seconds".
func ParsePreNoticeMode(s string) (PreNoticeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "percentage", "percent":
		return PreNoticePercentage, nil
	case "fixed_seconds", "fixed", "seconds":
		return PreNoticeFixedSeconds, nil
	}
	return 0, fmt.Errorf("unknown pre-notice mode %q", s)
}

func (m PreNoticeMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PreNoticeMode) UnmarshalText(b []byte) error {
	v, err := ParsePreNoticeMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
