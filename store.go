package mqpayload

import "context"

// PayloadStore keeps offloaded message bodies.
type PayloadStore interface {
	// Put stores payload under a new key and returns where it went.
	// contentEncoding is recorded on the object when not empty.
	Put(ctx context.Context, payload []byte, contentEncoding string) (Locator, error)

	// Get returns the stored payload. It fails with ErrObjectNotFound when
	// the object does not exist.
	Get(ctx context.Context, loc Locator) ([]byte, error)

	// Delete removes a single stored payload.
	Delete(ctx context.Context, loc Locator) error

	// DeleteMany removes every key from location.
	DeleteMany(ctx context.Context, location string, keys []string) error
}
