package mqpayload

// DefaultThreshold is the largest message size, in bytes, sent inline.
// Anything above it is offloaded to the payload store.
const DefaultThreshold = 256 * 1000

// MessageSize returns the size in bytes the queue accounts for a message:
// the body plus every attribute's name, data type and value.
// A nil attribute map counts as empty.
func MessageSize(body string, attributes map[string]Attribute) int {
	return len(body) + AttributesSize(attributes)
}

// AttributesSize returns the combined size of the attribute names, types and values.
func AttributesSize(attributes map[string]Attribute) int {
	total := 0
	for name, value := range attributes {
		total += len(name)
		total += len(value.DataType)
		total += len(value.StringValue)
		total += len(value.BinaryValue)
	}

	return total
}
