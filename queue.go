package mqpayload

import "context"

// Queue is an interface that represents the underlying message queue transport.
// Implementations pass messages through verbatim; all payload handling
// happens in Client.
type Queue interface {
	// Send enqueues a message and returns the id assigned by the queue.
	Send(ctx context.Context, queueURL string, message *Message) (string, error)

	// Receive dequeues up to request.MaxMessages messages.
	// Returns an empty slice when the queue had nothing to deliver.
	Receive(ctx context.Context, queueURL string, request *ReceiveRequest) ([]*Message, error)

	// Delete acknowledges a single message by its receipt handle.
	Delete(ctx context.Context, queueURL string, receiptHandle string) error

	// DeleteBatch acknowledges several messages in one call.
	DeleteBatch(ctx context.Context, queueURL string, entries []DeleteEntry) (*DeleteBatchResult, error)

	// ResolveURL returns the url of the queue called name owned by ownerID.
	// It fails with ErrQueueNotFound when no such queue exists.
	ResolveURL(ctx context.Context, name string, ownerID string) (string, error)
}

// ReceiveRequest represents the options of a single receive call.
type ReceiveRequest struct {
	// MaxMessages is the maximum number of messages to return (1-10).
	// Zero leaves the choice to the queue.
	MaxMessages int

	// WaitTimeSeconds is the long poll duration. Nil selects the client
	// default; point at zero to force a short poll.
	WaitTimeSeconds *int

	// VisibilityTimeout (in seconds) hides received messages from other
	// consumers. Zero keeps the queue's own setting.
	VisibilityTimeout int

	// AttributeNames lists the message attributes to return. The offload
	// marker is always requested in addition to these.
	AttributeNames []string
}
