package bpm

import "fmt"

// EngineError is a business-rule violation raised by the runtime, e.g.
// completing a task that has no assignee. Not-found conditions are reported
// as nil sentinels, never as errors.
type EngineError struct {
	Msg string
}

func (e *EngineError) Error() string {
	return e.Msg
}

// newEngineErrorf uses fmt.Sprintf(format, a...) to format the message
func newEngineErrorf(format string, a ...interface{}) error {
	return &EngineError{
		Msg: fmt.Sprintf(format, a...),
	}
}

// AuthorizationError is raised when a user acts on a task they are not
// entitled to, e.g. claiming a task without being a candidate.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string {
	return e.Msg
}

func newAuthorizationErrorf(format string, a ...interface{}) error {
	return &AuthorizationError{
		Msg: fmt.Sprintf(format, a...),
	}
}
