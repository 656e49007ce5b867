package mqpayload

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// HandleCodec embeds a payload Locator into a receipt handle and recovers
// both again. Decode(Encode(h, loc)) must return loc and h unchanged.
type HandleCodec interface {
	// Encode returns a handle carrying loc and the original handle.
	Encode(handle string, loc Locator) string

	// Decode returns the locator and original handle carried by encoded.
	Decode(encoded string) (Locator, string, error)

	// IsEncoded reports whether handle was produced by Encode.
	IsEncoded(handle string) bool
}

// envelopePrefix starts every envelope-encoded handle. SQS receipt handles
// are drawn from the base64 alphabet and never contain '~'.
const envelopePrefix = "~pl1~"

// EnvelopeCodec encodes handles as envelopePrefix followed by the unpadded
// base64url form of a three element CBOR array [location, key, handle].
// The fixed field count makes decoding unambiguous whatever the
// original handle contains.
type EnvelopeCodec struct{}

type handleEnvelope struct {
	_        struct{} `cbor:",toarray"`
	Location string
	Key      string
	Handle   string
}

var handleEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("mqpayload: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

// Encode implements HandleCodec.
func (EnvelopeCodec) Encode(handle string, loc Locator) string {
	data, err := handleEncMode.Marshal(handleEnvelope{
		Location: loc.Location,
		Key:      loc.Key,
		Handle:   handle,
	})
	if err != nil {
		// three text strings always encode
		panic("mqpayload: encoding handle envelope: " + err.Error())
	}

	return envelopePrefix + base64.RawURLEncoding.EncodeToString(data)
}

// Decode implements HandleCodec.
func (EnvelopeCodec) Decode(encoded string) (Locator, string, error) {
	if !strings.HasPrefix(encoded, envelopePrefix) {
		return Locator{}, "", fmt.Errorf("%w: missing envelope prefix", ErrMalformedHandle)
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded[len(envelopePrefix):])
	if err != nil {
		return Locator{}, "", fmt.Errorf("%w: %v", ErrMalformedHandle, err)
	}

	var envelope handleEnvelope
	if err := cbor.Unmarshal(data, &envelope); err != nil {
		return Locator{}, "", fmt.Errorf("%w: %v", ErrMalformedHandle, err)
	}

	if envelope.Location == "" || envelope.Key == "" {
		return Locator{}, "", fmt.Errorf("%w: empty location or key", ErrMalformedHandle)
	}

	return Locator{Location: envelope.Location, Key: envelope.Key}, envelope.Handle, nil
}

// IsEncoded implements HandleCodec.
func (EnvelopeCodec) IsEncoded(handle string) bool {
	return strings.HasPrefix(handle, envelopePrefix)
}

// Marker sequences used by MarkerCodec.
const (
	BucketMarker = "-..s3BucketName..-"
	KeyMarker    = "-..s3Key..-"
)

// MarkerCodec reads and writes handles in the marker format used by other
// SQS large payload clients:
//
//	BucketMarker bucket BucketMarker KeyMarker key KeyMarker handle
//
// Decoding is only unambiguous while neither the locator nor the original
// handle contain a marker sequence. Prefer EnvelopeCodec unless handles must
// be shared with such clients.
type MarkerCodec struct{}

// Encode implements HandleCodec.
func (MarkerCodec) Encode(handle string, loc Locator) string {
	var b strings.Builder
	b.Grow(2*len(BucketMarker) + 2*len(KeyMarker) + len(loc.Location) + len(loc.Key) + len(handle))
	b.WriteString(BucketMarker)
	b.WriteString(loc.Location)
	b.WriteString(BucketMarker)
	b.WriteString(KeyMarker)
	b.WriteString(loc.Key)
	b.WriteString(KeyMarker)
	b.WriteString(handle)

	return b.String()
}

// Decode implements HandleCodec.
func (MarkerCodec) Decode(encoded string) (Locator, string, error) {
	location, _, ok := betweenMarkers(encoded, BucketMarker)
	if !ok {
		return Locator{}, "", fmt.Errorf("%w: bucket markers not found", ErrMalformedHandle)
	}

	key, rest, ok := betweenMarkers(encoded, KeyMarker)
	if !ok {
		return Locator{}, "", fmt.Errorf("%w: key markers not found", ErrMalformedHandle)
	}

	return Locator{Location: location, Key: key}, rest, nil
}

// IsEncoded implements HandleCodec.
func (MarkerCodec) IsEncoded(handle string) bool {
	return strings.Contains(handle, BucketMarker) && strings.Contains(handle, KeyMarker)
}

// betweenMarkers returns the text between the first two occurrences of
// marker and everything after the second one.
func betweenMarkers(s, marker string) (string, string, bool) {
	first := strings.Index(s, marker)
	if first < 0 {
		return "", "", false
	}

	start := first + len(marker)
	second := strings.Index(s[start:], marker)
	if second < 0 {
		return "", "", false
	}

	return s[start : start+second], s[start+second+len(marker):], true
}

// ParseHandleCodec maps a handle format name to its codec.
// "envelope" (or "") selects EnvelopeCodec and "markers" selects MarkerCodec.
func ParseHandleCodec(name string) (HandleCodec, error) {
	switch name {
	case "", "envelope":
		return EnvelopeCodec{}, nil
	case "markers":
		return MarkerCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown handle format %q", ErrConfiguration, name)
	}
}
