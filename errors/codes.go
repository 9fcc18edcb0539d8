package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors (fatal, raised while building a client)
const (
	// ErrCodeConfigResolution indicates a client configuration could not be resolved.
	ErrCodeConfigResolution ErrorCode = "CONFIG_RESOLUTION"
	// ErrCodeUnknownMethod indicates a call to a method the interface does not declare.
	ErrCodeUnknownMethod ErrorCode = "UNKNOWN_METHOD"
	// ErrCodeInvalidArgument indicates the call arguments do not match the declared method.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeValidation indicates settings or a declaration failed validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// Call errors
const (
	// ErrCodeTransport indicates the request could not be exchanged with the remote service.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeTimeout indicates the exchange timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeHandler indicates a response or error handler failed.
	ErrCodeHandler ErrorCode = "HANDLER_ERROR"
	// ErrCodeDispatch indicates the declared return type could not be produced from the response.
	ErrCodeDispatch ErrorCode = "DISPATCH_ERROR"
	// ErrCodeSerialization indicates a parameter could not be written into the request.
	ErrCodeSerialization ErrorCode = "SERIALIZATION_ERROR"
	// ErrCodeSigning indicates the request could not be authorized.
	ErrCodeSigning ErrorCode = "SIGNING_FAILED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport:        true,
	ErrCodeTimeout:          true,
	ErrCodeConfigResolution: false,
	ErrCodeDispatch:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
