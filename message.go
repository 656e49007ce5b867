package mqpayload

// Message represents a queue message as seen by callers of this package.
type Message struct {
	// ID is the message id assigned by the queue. Empty on outbound messages.
	ID string

	// Body is the message payload. For offloaded messages the caller always
	// sees the original content, never the pointer record.
	Body string

	// Attributes is the set of typed message attributes keyed by name.
	Attributes map[string]Attribute

	// ReceiptHandle is the delivery handle required to delete the message.
	// It is only set on received messages.
	ReceiptHandle string
}

// Attribute is a single typed message attribute.
// DataType is one of "String", "Number" or "Binary", optionally followed by
// a custom type suffix such as "Number.int".
type Attribute struct {
	DataType    string
	StringValue string
	BinaryValue []byte
}

// DeleteEntry identifies one message in a batch delete.
type DeleteEntry struct {
	// ID is a caller-chosen id unique within the batch.
	ID string

	// ReceiptHandle is the handle returned with the received message.
	ReceiptHandle string
}

// DeleteBatchResult reports the per-entry outcome of a batch delete.
type DeleteBatchResult struct {
	Successful []string
	Failed     []BatchFailure
}

// BatchFailure describes a batch entry the queue refused to delete.
type BatchFailure struct {
	ID          string
	Code        string
	Message     string
	SenderFault bool
}

func (m *Message) clone() *Message {
	out := *m
	out.Attributes = make(map[string]Attribute, len(m.Attributes))
	for name, value := range m.Attributes {
		out.Attributes[name] = value
	}

	return &out
}
