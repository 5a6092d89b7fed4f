package session

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrAlreadyConnecting is returned by Connect when another connect is
	// already in flight.
	ErrAlreadyConnecting = errors.New("session: connect already in progress")

	// ErrNoScenes is reported by the scene-list refresh stage when the
	// server returns an empty scene collection.
	ErrNoScenes = errors.New("session: no scenes available")
)

// ConnectError wraps a failed connection attempt.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect %s: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CommandError classifies a failed command operation by name.
type CommandError struct {
	Op  string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("session: command %s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// SourceNotFoundError is returned by ToggleSourceVisibility when the named
// source is not present in the current scene's live item list.
type SourceNotFoundError struct {
	Name string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("session: source not found: %s", e.Name)
}

// StageError identifies which RefreshAll stage failed. RefreshAll keeps
// going after a stage failure; the joined error carries one StageError per
// failed stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("session: refresh stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
