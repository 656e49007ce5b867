package mqpayload

import "context"

// Sender sends messages, offloading large bodies.
type Sender interface {
	Send(ctx context.Context, queueURL string, message *Message) (string, error)
}

// Receiver receives messages with offloaded bodies restored.
type Receiver interface {
	Receive(ctx context.Context, queueURL string, request *ReceiveRequest) ([]*Message, error)
}

// Deleter deletes received messages by receipt handle.
type Deleter interface {
	Delete(ctx context.Context, queueURL string, receiptHandle string) error
	DeleteBatch(ctx context.Context, queueURL string, entries []DeleteEntry) (*DeleteBatchResult, error)
}

// Consumer runs a blocking consume loop.
type Consumer interface {
	Consume(ctx context.Context, queueURL string, request *ReceiveRequest, handler Handler) error
}

var (
	_ Sender   = (*Client)(nil)
	_ Receiver = (*Client)(nil)
	_ Deleter  = (*Client)(nil)
	_ Consumer = (*Client)(nil)
)
