package mqpayload

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// OffloadMarker is the reserved attribute name flagging a body as a pointer
// record. Its value is the original body size in bytes.
const OffloadMarker = "SQSLargePayloadSize"

// Locator addresses one stored payload.
type Locator struct {
	// Location is the bucket holding the payload.
	Location string

	// Key is the object key within Location.
	Key string
}

// pointerRecord is the body sent in place of an offloaded payload.
// The bucket and key field names are shared with other clients of the
// same queues and must not change.
type pointerRecord struct {
	Bucket      string `json:"s3BucketName"`
	Key         string `json:"s3Key"`
	Compression string `json:"compression,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}

func (p *pointerRecord) locator() Locator {
	return Locator{Location: p.Bucket, Key: p.Key}
}

func parsePointer(body string) (*pointerRecord, error) {
	record := &pointerRecord{}
	if err := json.Unmarshal([]byte(body), record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPointer, err)
	}

	if record.Bucket == "" || record.Key == "" {
		return nil, fmt.Errorf("%w: bucket and key are required", ErrMalformedPointer)
	}

	return record, nil
}

func (p *pointerRecord) encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func checksum(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// verify checks payload against the recorded checksum. Records written
// without one are accepted as-is.
func (p *pointerRecord) verify(payload []byte) error {
	if p.Checksum == "" {
		return nil
	}

	if got := checksum(payload); got != p.Checksum {
		return fmt.Errorf("%w: %s/%s: got %s, want %s", ErrChecksumMismatch, p.Bucket, p.Key, got, p.Checksum)
	}

	return nil
}
