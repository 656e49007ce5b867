package mqpayload

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrConfiguration indicates missing or invalid account, queue, bucket or
	// credential settings. It is never retried.
	ErrConfiguration = errors.New("mqpayload: configuration error")
	// ErrValidation indicates a message was rejected before any backend call.
	ErrValidation = errors.New("mqpayload: validation error")
	// ErrTransport wraps failures reported by the queue or the object store.
	ErrTransport = errors.New("mqpayload: transport error")
	// ErrNotFound indicates that a queue or a stored payload does not exist.
	ErrNotFound = errors.New("mqpayload: not found")
)

var (
	// ErrMissingAccountID is returned when no queue owner account is configured.
	ErrMissingAccountID = fmt.Errorf("%w: missing account id", ErrConfiguration)
	// ErrInvalidQueueName is returned when a queue name is empty.
	ErrInvalidQueueName = fmt.Errorf("%w: invalid queue name", ErrConfiguration)
	// ErrMissingBucket is returned when no payload bucket is configured.
	ErrMissingBucket = fmt.Errorf("%w: invalid bucket name", ErrConfiguration)
	// ErrMissingRegion is returned when no AWS region is configured.
	ErrMissingRegion = fmt.Errorf("%w: missing region", ErrConfiguration)
	// ErrInvalidCredentials is returned when only half of a static key pair is set.
	ErrInvalidCredentials = fmt.Errorf("%w: access key id and secret must be set together", ErrConfiguration)

	// ErrEmptyBody is returned for blank message bodies.
	ErrEmptyBody = fmt.Errorf("%w: message cannot be blank", ErrValidation)
	// ErrMissingAction is returned when a message envelope has no action.
	ErrMissingAction = fmt.Errorf("%w: missing action type", ErrValidation)
	// ErrInvalidAction is returned for action names outside the Action enum.
	ErrInvalidAction = fmt.Errorf("%w: invalid action type", ErrValidation)
	// ErrReservedAttribute is returned when a caller sets the offload marker.
	ErrReservedAttribute = fmt.Errorf("%w: attribute %s is reserved", ErrValidation, OffloadMarker)

	// ErrQueueNotFound is returned when a queue name/owner pair does not resolve.
	ErrQueueNotFound = fmt.Errorf("%w: queue does not exist", ErrNotFound)
	// ErrObjectNotFound is returned when an offloaded payload is missing from the store.
	ErrObjectNotFound = fmt.Errorf("%w: payload object does not exist", ErrNotFound)

	// ErrMalformedPointer is returned when an offloaded body is not a pointer record.
	ErrMalformedPointer = errors.New("mqpayload: malformed pointer record")
	// ErrMalformedHandle is returned when an encoded receipt handle cannot be decoded.
	ErrMalformedHandle = errors.New("mqpayload: malformed receipt handle")
	// ErrChecksumMismatch is returned when a fetched payload does not match its pointer checksum.
	ErrChecksumMismatch = errors.New("mqpayload: payload checksum mismatch")
	// ErrPayloadTooLarge is returned when a stored payload decompresses past its recorded size.
	ErrPayloadTooLarge = errors.New("mqpayload: payload exceeds recorded size")
	// ErrUnknownCompression is returned for compression names this package cannot handle.
	ErrUnknownCompression = errors.New("mqpayload: unknown compression")
	// ErrHandlerPanic indicates a consumer handler panicked.
	ErrHandlerPanic = errors.New("mqpayload: handler panic")
)

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
