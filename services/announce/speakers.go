package announce

import (
	"context"
	"fmt"
	"os/exec"

	"motion-logger/utils"
)

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(ctx context.Context, a Announcement) error

func (f SpeakerFunc) Speak(ctx context.Context, a Announcement) error { return f(ctx, a) }

// LogSpeaker writes each announcement to the log instead of speaking it.
type LogSpeaker struct{}

func (LogSpeaker) Speak(_ context.Context, a Announcement) error {
	utils.L().Info("announce: %s", a.Text)
	return nil
}

// CommandSpeaker runs an external text-to-speech program (espeak, say, …)
// with the announcement text appended as the last argument. Cancelling the
// context kills the process, which cuts the utterance short.
type CommandSpeaker struct {
	Argv []string
}

func (s CommandSpeaker) Speak(ctx context.Context, a Announcement) error {
	if len(s.Argv) == 0 {
		return fmt.Errorf("speech command not configured")
	}
	args := append(append([]string{}, s.Argv[1:]...), a.Text)
	cmd := exec.CommandContext(ctx, s.Argv[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w (%s)", s.Argv[0], err, out)
	}
	return nil
}

// Tee speaks through every speaker in order, returning the first error.
func Tee(speakers ...Speaker) Speaker {
	return SpeakerFunc(func(ctx context.Context, a Announcement) error {
		var first error
		for _, s := range speakers {
			if err := s.Speak(ctx, a); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// FromConfig picks the speaker described by the announcements section:
// the configured command when one is set, the log otherwise.
func FromConfig(cfg utils.AnnouncementsConfig) Speaker {
	if len(cfg.Command) > 0 {
		return Tee(LogSpeaker{}, CommandSpeaker{Argv: cfg.Command})
	}
	return LogSpeaker{}
}
