package mqpayload

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Transformer moves oversized bodies in and out of a PayloadStore.
// It never talks to the queue; Client calls it around every queue request.
type Transformer struct {
	store PayloadStore
	opts  options
}

// NewTransformer returns a Transformer offloading to store.
func NewTransformer(store PayloadStore, opts ...Option) *Transformer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return newTransformer(store, o.withDefaults())
}

func newTransformer(store PayloadStore, opts options) *Transformer {
	if store == nil {
		panic("mqpayload: nil PayloadStore")
	}

	return &Transformer{
		store: store,
		opts:  opts,
	}
}

// PrepareOutbound returns the message to hand to the queue. Messages at or
// below the threshold are returned as-is. Larger bodies are stored and the
// returned copy carries a pointer record body and the offload marker.
// The input message is never modified.
func (t *Transformer) PrepareOutbound(ctx context.Context, message *Message) (*Message, error) {
	if message.Body == "" {
		return nil, ErrEmptyBody
	}

	if _, ok := message.Attributes[OffloadMarker]; ok {
		return nil, ErrReservedAttribute
	}

	size := MessageSize(message.Body, message.Attributes)
	if size <= t.opts.threshold {
		return message, nil
	}

	payload := []byte(message.Body)
	stored, err := compress(payload, t.opts.compression)
	if err != nil {
		return nil, err
	}

	loc, err := t.store.Put(ctx, stored, t.opts.compression.contentEncoding())
	if err != nil {
		return nil, err
	}

	pointer := &pointerRecord{
		Bucket:      loc.Location,
		Key:         loc.Key,
		Compression: string(t.opts.compression),
		Checksum:    checksum(payload),
	}
	body, err := pointer.encode()
	if err != nil {
		return nil, err
	}

	t.opts.logger.WithFields(logrus.Fields{
		"bucket": loc.Location,
		"key":    loc.Key,
		"size":   len(payload),
	}).Debug("offloaded message body")
	t.opts.metrics.ObserveOffload(len(payload))

	out := message.clone()
	out.Body = body
	out.Attributes[OffloadMarker] = Attribute{
		DataType:    "Number",
		StringValue: strconv.Itoa(len(payload)),
	}

	return out, nil
}

// DiscardOutbound handles a prepared message the queue did not accept.
// The payload it points to is deleted when store deletion is enabled and
// logged as orphaned otherwise. Messages that were not offloaded are ignored.
func (t *Transformer) DiscardOutbound(ctx context.Context, prepared *Message) {
	if _, ok := prepared.Attributes[OffloadMarker]; !ok {
		return
	}

	pointer, err := parsePointer(prepared.Body)
	if err != nil {
		return
	}
	loc := pointer.locator()
	logger := t.opts.logger.WithFields(logrus.Fields{
		"bucket": loc.Location,
		"key":    loc.Key,
	})

	if !t.opts.storeDelete {
		logger.Warn("send failed, stored payload orphaned")
		return
	}

	if err := t.store.Delete(context.WithoutCancel(ctx), loc); err != nil {
		logger.WithField("error", err).Warn("send failed, orphaned payload not deleted")
		return
	}
	t.opts.metrics.AddStoreDeletes(1)
	logger.Debug("send failed, stored payload deleted")
}

// FixInbound restores the original body of an offloaded message, removes
// the offload marker and encodes the payload locator into the receipt
// handle. Messages without the marker are returned as-is.
func (t *Transformer) FixInbound(ctx context.Context, message *Message) (*Message, error) {
	if _, ok := message.Attributes[OffloadMarker]; !ok {
		return message, nil
	}

	pointer, err := parsePointer(message.Body)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", message.ID, err)
	}

	stored, err := t.store.Get(ctx, pointer.locator())
	if err != nil {
		return nil, err
	}

	payload, err := decompress(stored, Compression(pointer.Compression), payloadLimit(message))
	if err != nil {
		return nil, err
	}

	if err := pointer.verify(payload); err != nil {
		return nil, err
	}

	t.opts.metrics.AddRehydrated(1)

	out := message.clone()
	out.Body = string(payload)
	delete(out.Attributes, OffloadMarker)
	out.ReceiptHandle = t.opts.codec.Encode(message.ReceiptHandle, pointer.locator())

	return out, nil
}

// payloadLimit returns the original payload size recorded in the offload
// marker, or maxDecompressedSize when the marker holds no usable size.
func payloadLimit(message *Message) int64 {
	size, err := strconv.ParseInt(message.Attributes[OffloadMarker].StringValue, 10, 64)
	if err != nil || size <= 0 || size > maxDecompressedSize {
		return maxDecompressedSize
	}
	return size
}

// ReleaseHandle returns the queue's own receipt handle for handle. For
// encoded handles the stored payload is deleted first when store deletion
// is enabled.
func (t *Transformer) ReleaseHandle(ctx context.Context, handle string) (string, error) {
	if !t.opts.codec.IsEncoded(handle) {
		return handle, nil
	}

	loc, original, err := t.opts.codec.Decode(handle)
	if err != nil {
		return "", err
	}

	if !t.opts.storeDelete {
		t.opts.logger.WithField("key", loc.Key).Debug("store delete disabled, keeping payload")
		return original, nil
	}

	if err := t.store.Delete(ctx, loc); err != nil {
		return "", err
	}
	t.opts.metrics.AddStoreDeletes(1)

	return original, nil
}

// ReleaseBatch rewrites every encoded handle in entries to the queue's own
// handle and groups the payload keys by location. The returned slice is a
// copy holding every entry, encoded or not, in the original order.
func (t *Transformer) ReleaseBatch(entries []DeleteEntry) ([]DeleteEntry, map[string][]string, error) {
	out := make([]DeleteEntry, len(entries))
	keys := make(map[string][]string)

	for i, entry := range entries {
		out[i] = entry
		if !t.opts.codec.IsEncoded(entry.ReceiptHandle) {
			continue
		}

		loc, original, err := t.opts.codec.Decode(entry.ReceiptHandle)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %s: %w", entry.ID, err)
		}

		out[i].ReceiptHandle = original
		keys[loc.Location] = append(keys[loc.Location], loc.Key)
	}

	return out, keys, nil
}

// DeleteStored issues one DeleteMany per location. It is a no-op while
// store deletion is disabled.
func (t *Transformer) DeleteStored(ctx context.Context, keys map[string][]string) error {
	if len(keys) == 0 {
		return nil
	}

	if !t.opts.storeDelete {
		t.opts.logger.WithField("locations", len(keys)).Debug("store delete disabled, keeping payloads")
		return nil
	}

	locations := make([]string, 0, len(keys))
	for location := range keys {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	var g errgroup.Group
	for _, location := range locations {
		location := location
		g.Go(func() error {
			if err := t.store.DeleteMany(ctx, location, keys[location]); err != nil {
				return err
			}
			t.opts.metrics.AddStoreDeletes(len(keys[location]))
			return nil
		})
	}

	return g.Wait()
}
