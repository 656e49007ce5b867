package mqpayload

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Client sends, receives and deletes queue messages, offloading bodies
// larger than the size threshold to a PayloadStore. A Client is safe for
// concurrent use once constructed.
type Client struct {
	queue       Queue
	transformer *Transformer
	accountID   string
	opts        options
}

// New returns a Client for queue and store. accountID is the owner of the
// queues resolved through QueueURL and may be empty when QueueURL is not used.
func New(queue Queue, store PayloadStore, accountID string, opts ...Option) *Client {
	if queue == nil {
		panic("mqpayload: nil Queue")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o = o.withDefaults()

	return &Client{
		queue:       queue,
		transformer: newTransformer(store, o),
		accountID:   accountID,
		opts:        o,
	}
}

// QueueURL resolves the url of the named queue owned by the client's account.
func (c *Client) QueueURL(ctx context.Context, name string) (string, error) {
	if c.accountID == "" {
		return "", ErrMissingAccountID
	}
	if name == "" {
		return "", ErrInvalidQueueName
	}

	queueURL, err := c.queue.ResolveURL(ctx, name, c.accountID)
	if err != nil {
		return "", err
	}

	c.opts.logger.WithField("queue_url", queueURL).Debug("resolved queue url")

	return queueURL, nil
}

// Send sends message, offloading its body first when it is too large.
// It returns the id assigned by the queue. When the queue rejects an
// offloaded message its stored payload is deleted if store deletion is
// enabled.
func (c *Client) Send(ctx context.Context, queueURL string, message *Message) (string, error) {
	prepared, err := c.transformer.PrepareOutbound(ctx, message)
	if err != nil {
		return "", err
	}

	id, err := c.queue.Send(ctx, queueURL, prepared)
	if err != nil {
		c.transformer.DiscardOutbound(ctx, prepared)
		return "", err
	}

	return id, nil
}

// Receive receives messages and restores the bodies of offloaded ones.
// The offload marker is always requested from the queue, and the long poll
// wait defaults to the client setting when request leaves it unset.
func (c *Client) Receive(ctx context.Context, queueURL string, request *ReceiveRequest) ([]*Message, error) {
	c.opts.logger.WithField("queue_url", queueURL).Debug("receiving messages")

	messages, err := c.queue.Receive(ctx, queueURL, c.receiveRequest(request))
	if err != nil {
		return nil, err
	}

	fixed := make([]*Message, len(messages))
	g, gctx := errgroup.WithContext(ctx)
	for i, message := range messages {
		i, message := i, message
		g.Go(func() error {
			out, err := c.transformer.FixInbound(gctx, message)
			if err != nil {
				return err
			}
			fixed[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fixed, nil
}

func (c *Client) receiveRequest(request *ReceiveRequest) *ReceiveRequest {
	out := ReceiveRequest{}
	if request != nil {
		out = *request
	}

	names := make([]string, 0, len(out.AttributeNames)+1)
	requested := false
	for _, name := range out.AttributeNames {
		if name == OffloadMarker {
			requested = true
		}
		names = append(names, name)
	}
	if !requested {
		names = append(names, OffloadMarker)
	}
	out.AttributeNames = names

	if out.WaitTimeSeconds == nil {
		wait := c.opts.waitTimeSeconds
		out.WaitTimeSeconds = &wait
	}

	return &out
}

// Delete deletes the message identified by receiptHandle. Handles returned
// for offloaded messages are decoded back to the queue's own handle, and
// the stored payload is deleted first when store deletion is enabled.
func (c *Client) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	original, err := c.transformer.ReleaseHandle(ctx, receiptHandle)
	if err != nil {
		return err
	}

	return c.queue.Delete(ctx, queueURL, original)
}

// DeleteBatch deletes several messages. Stored payloads are deleted with one
// request per location while the queue batch delete runs; both complete
// before DeleteBatch returns and errors from either side are joined.
// The queue result is returned whenever the queue call succeeded.
func (c *Client) DeleteBatch(ctx context.Context, queueURL string, entries []DeleteEntry) (*DeleteBatchResult, error) {
	rewritten, keys, err := c.transformer.ReleaseBatch(entries)
	if err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		result   *DeleteBatchResult
		queueErr error
		storeErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		storeErr = c.transformer.DeleteStored(ctx, keys)
	}()
	go func() {
		defer wg.Done()
		result, queueErr = c.queue.DeleteBatch(ctx, queueURL, rewritten)
	}()
	wg.Wait()

	if err := errors.Join(queueErr, storeErr); err != nil {
		c.opts.logger.WithFields(logrus.Fields{
			"entries": len(entries),
			"error":   err,
		}).Warn("batch delete incomplete")
		return result, err
	}

	return result, nil
}
