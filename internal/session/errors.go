package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrUnknownPart       = errors.New("part does not belong to this test")
	ErrNoParts           = errors.New("test has no parts")
)

// TransitionError reports an operation rejected in the session's current phase.
// The session is left unchanged.
type TransitionError struct {
	Op     string
	From   Phase
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("session: %s not allowed from %s: %s", e.Op, e.From, e.Reason)
	}
	return fmt.Sprintf("session: %s not allowed from %s", e.Op, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
