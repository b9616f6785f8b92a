package workflow

import "fmt"

// ErrorCode classifies runtime failures with a stable machine-readable
// tag. Codes, not messages, are the compatibility surface.
type ErrorCode string

const (
	// CodeValidation marks a workflow rejected before execution.
	CodeValidation ErrorCode = "validation_error"
	// CodeCreditExceeded marks a failed pre-flight credit check.
	CodeCreditExceeded ErrorCode = "credit_exceeded"
	// CodeMissingDependency marks a service required by a parameter
	// type or node kind that was not injected.
	CodeMissingDependency ErrorCode = "missing_dependency"
	// CodeNodeError marks a failure returned or thrown by a node
	// implementation.
	CodeNodeError ErrorCode = "node_error"
	// CodeStepTimeout marks a durable step exceeding its timeout.
	CodeStepTimeout ErrorCode = "step_timeout"
)

// RuntimeError is a structured error carrying an ErrorCode. All errors
// the runtime produces itself are of this type; errors from node
// implementations and services are wrapped where a code applies.
type RuntimeError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a RuntimeError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the ErrorCode carried by err, or CodeNodeError when
// err is not a RuntimeError.
func CodeOf(err error) ErrorCode {
	if re, ok := err.(*RuntimeError); ok {
		return re.Code
	}
	return CodeNodeError
}
