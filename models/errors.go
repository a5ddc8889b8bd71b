package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive is returned when a recording is started while one is running.
	ErrSessionActive = &SessionStateError{Op: "start", Msg: "a recording session is already active"}
	// ErrSessionInactive is returned when there is no session to stop or label.
	ErrSessionInactive = &SessionStateError{Op: "stop", Msg: "no recording session is active"}
	// ErrSequenceRunning is returned when a sequence is started while one runs.
	ErrSequenceRunning = &SessionStateError{Op: "start sequence", Msg: "an activity sequence is already running"}
	// ErrSequenceNotRunning is returned by cancel outside the running state.
	ErrSequenceNotRunning = &SessionStateError{Op: "cancel sequence", Msg: "no activity sequence is running"}
	// ErrEmptySequence rejects a sequence without activities.
	ErrEmptySequence = &ConfigError{Msg: "activity sequence is empty"}
	// ErrFileInUse is returned by the library for the file of the active session.
	ErrFileInUse = errors.New("recording file is in use by the active session")
)

// SessionStateError reports an operation that is invalid in the current
// session state. It is a failure result, never fatal.
type SessionStateError struct {
	Op  string
	Msg string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// StorageError wraps a filesystem failure while opening or writing a recording.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigError reports a rejected request, such as an empty activity sequence.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}
