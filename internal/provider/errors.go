package provider

import (
	"errors"
)

// ErrorKind classifies a vendor failure for retry handling.
type ErrorKind string

const (
	// ErrorKindRateLimited means the vendor returned 429. The item is
	// requeued after a short fixed delay without spending retry budget.
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindTransient covers 5xx responses, network errors, and
	// timeouts. Retried with exponential backoff against the retry budget.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindPermanent covers 4xx responses other than 429. Never retried.
	ErrorKindPermanent ErrorKind = "permanent"
)

// ProviderError wraps a vendor API error with classification metadata.
type ProviderError struct {
	// Provider is the name of the vendor that returned the error.
	Provider string
	// StatusCode is the HTTP status code from the vendor API, or 0 for
	// network-level failures.
	StatusCode int
	// Message is the error description from the vendor API.
	Message string
	// Kind is the retry classification.
	Kind ErrorKind
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Message
}

// Classify returns the retry classification of an error. Errors that are not
// a ProviderError (network failures, timeouts, context deadline) are treated
// as transient so the send is retried rather than lost.
func Classify(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindTransient
}

// ClassifyHTTPError creates a ProviderError from an HTTP status code and
// response body. Classification is keyed off the status code alone:
// 429 is rate limited, other 4xx are permanent, 5xx are transient.
func ClassifyHTTPError(providerName string, statusCode int, body string) *ProviderError {
	if statusCode >= 200 && statusCode < 300 {
		// Not an error.
		return nil
	}

	pe := &ProviderError{
		Provider:   providerName,
		StatusCode: statusCode,
		Message:    body,
	}

	switch {
	case statusCode == 429:
		pe.Kind = ErrorKindRateLimited
	case statusCode >= 400 && statusCode < 500:
		pe.Kind = ErrorKindPermanent
	default:
		pe.Kind = ErrorKindTransient
	}

	return pe
}
