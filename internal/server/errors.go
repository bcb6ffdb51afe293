package server

// ErrorCode tells an MCP client whether calling again with other arguments
// can succeed
type ErrorCode string

const (
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// ToolError is the error every tool and resource handler returns. The SDK
// sends its Error() text back to the client as the tool result.
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	cause error
}

func (e *ToolError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.cause
}

func newToolError(code ErrorCode, msg string, cause error) *ToolError {
	te := &ToolError{Code: code, Message: msg, cause: cause}
	if cause != nil {
		te.Details = cause.Error()
	}
	return te
}

// invalidInput rejects an argument; cause may be nil
func invalidInput(msg string, cause error) *ToolError {
	return newToolError(ErrInvalidInput, msg, cause)
}

func notFound(what string) *ToolError {
	return newToolError(ErrNotFound, what+" not found", nil)
}

func databaseError(op string, cause error) *ToolError {
	return newToolError(ErrDatabaseError, "database "+op+" failed", cause)
}

func internalError(msg string, cause error) *ToolError {
	return newToolError(ErrInternalError, msg, cause)
}
