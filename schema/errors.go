package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages.
var (
	// ErrMethodNotFound reports a request naming a method outside the
	// vocabulary.
	ErrMethodNotFound = errors.New("method not found")

	// ErrHostOnlyTool reports a host-only tool dispatched to the guest.
	ErrHostOnlyTool = errors.New("host-only tool")

	// ErrGuestUnavailable reports that no live guest connection exists or
	// that the connection was lost mid-call.
	ErrGuestUnavailable = errors.New("guest unavailable")

	// ErrInteractionPending reports an attempt to register a second
	// question or permission while one is still waiting.
	ErrInteractionPending = errors.New("interaction already pending")

	// ErrInteractionResolved reports a duplicate resolution attempt.
	ErrInteractionResolved = errors.New("interaction already resolved")

	// ErrInteractionNotFound reports a resolution aimed at an id that was
	// never registered or has been released.
	ErrInteractionNotFound = errors.New("interaction not found")
)

// ToolError wraps a failure inside a specific tool operation.
type ToolError struct {
	Tool string
	Op   string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Op, e.Err)
	}
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a ToolError.
func NewToolError(tool, op string, err error) *ToolError {
	return &ToolError{Tool: tool, Op: op, Err: err}
}

// ProtocolError is a structured error carried in a wire response.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}
