// Package errors defines the coded error type shared by the game packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes for the game engine.
const (
	// Lookup errors
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeNoActiveSession = "NO_ACTIVE_SESSION"
	ErrCodeStoryLocked     = "STORY_LOCKED"

	// Persistence errors
	ErrCodePersistence = "PERSISTENCE_ERROR"

	// Startup errors
	ErrCodeContentInvalid = "CONTENT_INVALID"
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
)

// GameError is an error raised by one of the game components.
type GameError struct {
	Code    string
	Message string
	Err     error
}

func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GameError) Unwrap() error {
	return e.Err
}

// NewGameError creates a new GameError.
func NewGameError(code, message string, err error) *GameError {
	return &GameError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrNotFound returns an error for an unknown id of the given kind
// ("puzzle", "story", "achievement", ...).
func ErrNotFound(kind, id string) *GameError {
	return &GameError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
	}
}

// ErrNoActiveSession returns an error when a hint or submission arrives
// for a puzzle the player has not started.
func ErrNoActiveSession(puzzleID string) *GameError {
	return &GameError{
		Code:    ErrCodeNoActiveSession,
		Message: fmt.Sprintf("no active session for puzzle: %s", puzzleID),
	}
}

// ErrStoryLocked returns an error when switching to a story that is still gated.
func ErrStoryLocked(storyID string) *GameError {
	return &GameError{
		Code:    ErrCodeStoryLocked,
		Message: fmt.Sprintf("story is locked: %s", storyID),
	}
}

// ErrPersistence wraps save/load failures.
func ErrPersistence(operation string, err error) *GameError {
	return &GameError{
		Code:    ErrCodePersistence,
		Message: fmt.Sprintf("persistence error during %s", operation),
		Err:     err,
	}
}

// ErrContentInvalid returns an error for a malformed content pack.
func ErrContentInvalid(reason string) *GameError {
	return &GameError{
		Code:    ErrCodeContentInvalid,
		Message: fmt.Sprintf("invalid content: %s", reason),
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(reason string) *GameError {
	return &GameError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("invalid configuration: %s", reason),
	}
}

// HasCode reports whether err (or anything it wraps) is a GameError with the given code.
func HasCode(err error, code string) bool {
	var ge *GameError
	if stderrors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return HasCode(err, ErrCodeNotFound) }

// IsNoActiveSession reports whether err is a NO_ACTIVE_SESSION error.
func IsNoActiveSession(err error) bool { return HasCode(err, ErrCodeNoActiveSession) }

// IsPersistence reports whether err is a PERSISTENCE_ERROR.
func IsPersistence(err error) bool { return HasCode(err, ErrCodePersistence) }

// IsStoryLocked reports whether err is a STORY_LOCKED error.
func IsStoryLocked(err error) bool { return HasCode(err, ErrCodeStoryLocked) }
