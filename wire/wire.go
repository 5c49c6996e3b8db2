// Package wire implements the framed request/response protocol spoken between
// host and guest: newline-delimited UTF-8 JSON objects, one message per line,
// over a point-to-point stream socket.
package wire

import (
	"encoding/json"
	"fmt"
)

// Error codes carried in Response.Error. Standard JSON-RPC numbering is used
// where a matching code exists; implementation-defined codes sit in the
// -32000 range.
const (
	CodeParse           = -32700
	CodeInvalidRequest  = -32600
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternal        = -32603
	CodeExecutionFailed = -32000
	CodeHostOnlyTool    = -32001
)

// Request is one command sent to the guest. ID is caller-chosen and echoed
// verbatim in the matching response.
type Request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers exactly one prior request. Exactly one of Result or Error
// is present.
type Response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is the structured failure half of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Errorf builds a wire error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewResponse marshals result into a success response for id.
func NewResponse(id int64, result any) (Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: id, Result: data}, nil
}

// ErrorResponse builds a failure response for id.
func ErrorResponse(id int64, code int, format string, args ...any) Response {
	return Response{ID: id, Error: Errorf(code, format, args...)}
}
