package errors

import (
	"fmt"
)

// Transport creates a channel transport failure error
func Transport(url string, err error) *FeedError {
	return Wrap(err, ErrCodeTransportFailed, "channel transport failed").
		WithDetail("url", url)
}

// Confirmation creates a failed remote confirmation error for a mutation
func Confirmation(action string, recordID string, err error) *FeedError {
	return Wrap(err, ErrCodeConfirmationFailed, fmt.Sprintf("remote confirmation failed: %s", action)).
		WithDetail("action", action).
		WithDetail("record", recordID)
}

// Validation creates an input validation error
func Validation(field, reason string) *FeedError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// UnknownMessageType creates an error for a channel frame with an unrecognized type
func UnknownMessageType(kind string) *FeedError {
	return New(ErrCodeUnknownMessageType, fmt.Sprintf("unknown message type '%s'", kind)).
		WithDetail("type", kind)
}

// MalformedMessage creates an error for a channel frame that could not be decoded
func MalformedMessage(err error) *FeedError {
	return Wrap(err, ErrCodeMalformedMessage, "malformed channel message")
}

// RecordNotFound creates an error for a missing local record
func RecordNotFound(kind, id string) *FeedError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("%s '%s' not found", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *FeedError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *FeedError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
