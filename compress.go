package mqpayload

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how offloaded payloads are encoded in the store.
type Compression string

const (
	// CompressionNone stores payloads verbatim, readable by any client.
	CompressionNone Compression = ""
	// CompressionZstd stores payloads as a zstd frame.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 stores payloads as an LZ4 frame.
	CompressionLZ4 Compression = "lz4"
)

// ParseCompression parses a compression name. "none" and "" both select
// CompressionNone.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// maxDecompressedSize bounds decompression when a message does not record
// its original size.
const maxDecompressedSize int64 = 2 << 30

// zstd.Encoder is safe for concurrent use with EncodeAll.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("mqpayload: zstd encoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, algorithm Compression) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		writer := lz4.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(algorithm))
	}
}

// decompress decodes data, failing with ErrPayloadTooLarge once the output
// would exceed limit bytes.
func decompress(data []byte, algorithm Compression, limit int64) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		defer decoder.Close()

		out, err := readLimited(decoder, limit)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := readLimited(lz4.NewReader(bytes.NewReader(data)), limit)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, string(algorithm))
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return out, nil
}

// contentEncoding returns the HTTP content encoding recorded on stored objects.
func (c Compression) contentEncoding() string {
	return string(c)
}
