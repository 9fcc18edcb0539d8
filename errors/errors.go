package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified restkit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status of the remote response, 0 when none was received.
	HTTPStatus int `json:"http_status,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// --- Constructors ---

// ConfigResolution creates a fatal error for a client configuration that cannot be resolved.
func ConfigResolution(iface, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeConfigResolution,
		Message: fmt.Sprintf("cannot resolve configuration of %s: %s", iface, reason),
		Details: map[string]any{"interface": iface},
	}
}

// UnknownMethod creates an error for a call to an undeclared method.
func UnknownMethod(iface, method string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownMethod,
		Message: fmt.Sprintf("%s does not declare method %s", iface, method),
		Details: map[string]any{"interface": iface, "method": method},
	}
}

// InvalidArgument creates an error for arguments that do not fit the declared method.
func InvalidArgument(method, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf("invalid arguments for %s: %s", method, reason),
		Details: map[string]any{"method": method},
	}
}

// Validation creates an error for settings or declarations that failed validation.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Transport creates a retryable error wrapping a failed exchange.
func Transport(status int, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeTransport,
		Message:    "request exchange failed",
		Retryable:  true,
		HTTPStatus: status,
		Cause:      cause,
	}
}

// Timeout creates an error for an exchange that timed out.
func Timeout(operation string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeTimeout,
		Message:   "the request took too long",
		Retryable: true,
		Details:   map[string]any{"operation": operation},
		Cause:     cause,
	}
}

// Handler creates an error for a response or error handler that failed.
func Handler(method string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeHandler,
		Message: fmt.Sprintf("handling response of %s failed", method),
		Details: map[string]any{"method": method},
		Cause:   cause,
	}
}

// Dispatch creates an error for a declared return type that cannot be satisfied.
func Dispatch(method, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeDispatch,
		Message: fmt.Sprintf("cannot produce return value of %s: %s", method, reason),
		Details: map[string]any{"method": method},
	}
}

// Serialization creates an error for a parameter that could not be written.
func Serialization(param string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeSerialization,
		Message: fmt.Sprintf("cannot serialize parameter %s", param),
		Details: map[string]any{"param": param},
		Cause:   cause,
	}
}

// Signing creates an error for a request that could not be authorized.
func Signing(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeSigning,
		Message: "request authorization failed",
		Cause:   cause,
	}
}
