package mqpayload

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Handler processes one received message. Handlers are responsible for
// deleting the messages they complete.
type Handler func(ctx context.Context, message *Message) error

// Consume receives messages from queueURL and passes each of them on to
// handler. Every message of a poll is handled concurrently and the next poll
// starts once all handlers have returned. After an empty poll Consume sleeps
// for the idle interval.
//
// This is a blocking function and doesn't return until ctx is done, a
// receive fails or a handler fails. A failing handler does not stop its
// siblings in the same poll; the first error is returned once they finish.
func (c *Client) Consume(ctx context.Context, queueURL string, request *ReceiveRequest, handler Handler) error {
	if handler == nil {
		panic("mqpayload: nil Handler")
	}

	logger := c.opts.logger.WithField("queue_url", queueURL)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messages, err := c.Receive(ctx, queueURL, request)
		if err != nil {
			return err
		}

		logger.WithField("count", len(messages)).Debug("polled messages")

		if len(messages) == 0 {
			logger.WithField("sleep", c.opts.idleSleep).Debug("queue empty, sleeping")
			if err := sleep(ctx, c.opts.idleSleep); err != nil {
				return err
			}
			continue
		}

		if err := c.dispatch(ctx, logger, messages, handler); err != nil {
			return err
		}
	}
}

func (c *Client) dispatch(ctx context.Context, logger logrus.FieldLogger, messages []*Message, handler Handler) error {
	var g errgroup.Group
	for _, message := range messages {
		message := message
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("%w: message %s: %v", ErrHandlerPanic, message.ID, rec)
				}
				if err != nil {
					c.opts.metrics.AddHandlerFailures(1)
					logger.WithFields(logrus.Fields{
						"message_id": message.ID,
						"error":      err,
					}).Error("handler failed")
				}
			}()

			logger.WithField("message_id", message.ID).Debug("executing handler")
			return handler(ctx, message)
		})
	}

	return g.Wait()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
