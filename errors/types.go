package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Channel errors
	ErrCodeTransportFailed    ErrorCode = "TRANSPORT_FAILED"
	ErrCodeUnknownMessageType ErrorCode = "UNKNOWN_MESSAGE_TYPE"
	ErrCodeMalformedMessage   ErrorCode = "MALFORMED_MESSAGE"
	ErrCodeNotConnected       ErrorCode = "NOT_CONNECTED"

	// Mutation errors
	ErrCodeConfirmationFailed ErrorCode = "CONFIRMATION_FAILED"
	ErrCodeRecordNotFound     ErrorCode = "RECORD_NOT_FOUND"

	// Input errors
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Preference storage errors
	ErrCodeStateUnavailable ErrorCode = "STATE_UNAVAILABLE"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// FeedError represents a structured error with context
type FeedError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *FeedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FeedError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *FeedError) WithDetail(key string, value interface{}) *FeedError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *FeedError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new FeedError
func New(code ErrorCode, message string) *FeedError {
	return &FeedError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FeedError
func Wrap(err error, code ErrorCode, message string) *FeedError {
	return &FeedError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error chain contains a FeedError with the given code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	feedErr, ok := err.(*FeedError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if feedErr.Code == code {
		return true
	}
	return Is(feedErr.Cause, code)
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	feedErr, ok := err.(*FeedError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return feedErr.Code
}

// As returns the outermost FeedError in the chain, if any
func As(err error) (*FeedError, bool) {
	for err != nil {
		if feedErr, ok := err.(*FeedError); ok {
			return feedErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
