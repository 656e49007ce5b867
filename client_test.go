package mqpayload

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQueueURL = "https://sqs.us-west-2.amazonaws.com/123456789012/test-queue"

func newTestClient(queue Queue, store PayloadStore, opts ...Option) *Client {
	return New(queue, store, "123456789012", append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestClient_LargeMessageRoundTrip(t *testing.T) {
	for _, storeDelete := range []bool{false, true} {
		t.Run(map[bool]string{false: "Store delete disabled", true: "Store delete enabled"}[storeDelete], func(t *testing.T) {
			queue := newFakeQueue()
			store := newFakeStore("payload-bucket")
			client := newTestClient(queue, store, WithStoreDelete(storeDelete))
			ctx := context.Background()

			payload := strings.Repeat("p", 300000)
			body, err := FormatMessage(payload, ActionCreate, "r1")
			require.NoError(t, err)

			_, err = client.Send(ctx, testQueueURL, &Message{Body: body})
			require.NoError(t, err)
			require.Len(t, queue.sent, 1)
			assert.Contains(t, queue.sent[0].Attributes, OffloadMarker)
			assert.Less(t, len(queue.sent[0].Body), 1000)

			messages, err := client.Receive(ctx, testQueueURL, &ReceiveRequest{MaxMessages: 1})
			require.NoError(t, err)
			require.Len(t, messages, 1)

			received := messages[0]
			assert.Equal(t, body, received.Body)
			assert.NotContains(t, received.Attributes, OffloadMarker)
			assert.True(t, EnvelopeCodec{}.IsEncoded(received.ReceiptHandle))

			envelope, err := ParseEnvelope(received.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, envelope.Payload)
			assert.Equal(t, "r1", envelope.RequestID)

			require.NoError(t, client.Delete(ctx, testQueueURL, received.ReceiptHandle))
			require.Equal(t, []string{"AQEBmsg-1+native/handle=="}, queue.deleted)

			if storeDelete {
				assert.Equal(t, []Locator{{Location: "payload-bucket", Key: "key-1"}}, store.deletes)
			} else {
				assert.Empty(t, store.deletes)
			}
		})
	}
}

func TestClient_SmallMessageRoundTrip(t *testing.T) {
	queue := newFakeQueue()
	store := newFakeStore("payload-bucket")
	client := newTestClient(queue, store)
	ctx := context.Background()

	_, err := client.Send(ctx, testQueueURL, &Message{
		Body: "10 bytes string",
		Attributes: map[string]Attribute{
			"action": {DataType: "String", StringValue: string(ActionUpdate)},
		},
	})
	require.NoError(t, err)

	messages, err := client.Receive(ctx, testQueueURL, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "10 bytes string", messages[0].Body)
	assert.Equal(t, "UPDATE", messages[0].Attributes["action"].StringValue)
	assert.False(t, EnvelopeCodec{}.IsEncoded(messages[0].ReceiptHandle))
	assert.Equal(t, 0, store.puts)

	require.NoError(t, client.Delete(ctx, testQueueURL, messages[0].ReceiptHandle))
	assert.Equal(t, []string{messages[0].ReceiptHandle}, queue.deleted)
}

func TestClient_ReceiveRequestsMarker(t *testing.T) {
	queue := newFakeQueue()
	client := newTestClient(queue, newFakeStore("b"))
	ctx := context.Background()

	names := []string{"service"}
	_, err := client.Receive(ctx, testQueueURL, &ReceiveRequest{AttributeNames: names, VisibilityTimeout: 30})
	require.NoError(t, err)

	zero := 0
	_, err = client.Receive(ctx, testQueueURL, &ReceiveRequest{AttributeNames: []string{OffloadMarker}, WaitTimeSeconds: &zero})
	require.NoError(t, err)

	require.Len(t, queue.receives, 2)
	assert.Equal(t, []string{"service", OffloadMarker}, queue.receives[0].AttributeNames)
	assert.Equal(t, []string{"service"}, names, "caller slice must not be modified")
	assert.Equal(t, 20, *queue.receives[0].WaitTimeSeconds)
	assert.Equal(t, 30, queue.receives[0].VisibilityTimeout)

	assert.Equal(t, []string{OffloadMarker}, queue.receives[1].AttributeNames)
	assert.Equal(t, 0, *queue.receives[1].WaitTimeSeconds)
}

func TestClient_ReceivePreservesOrder(t *testing.T) {
	queue := newFakeQueue()
	store := newFakeStore("b")
	client := newTestClient(queue, store, WithThreshold(5))
	ctx := context.Background()

	bodies := []string{"tiny", "large body one", "mid", "large body two"}
	for _, body := range bodies {
		_, err := client.Send(ctx, testQueueURL, &Message{Body: body})
		require.NoError(t, err)
	}

	messages, err := client.Receive(ctx, testQueueURL, &ReceiveRequest{MaxMessages: 10})
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i, message := range messages {
		assert.Equal(t, bodies[i], message.Body)
	}
	assert.Equal(t, 2, store.puts)
}

func TestClient_SendValidationBeforeBackend(t *testing.T) {
	queue := newFakeQueue()
	store := newFakeStore("b")
	client := newTestClient(queue, store)

	_, err := client.Send(context.Background(), testQueueURL, &Message{Body: ""})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, queue.sent)
	assert.Equal(t, 0, store.puts)
}

func TestClient_SendFailureReleasesPayload(t *testing.T) {
	sendErr := transportError("SendMessage", errors.New("throttled"))

	tests := []struct {
		name        string
		storeDelete bool
		body        string
		deletes     int
		remaining   int
	}{
		{name: "Store delete enabled", storeDelete: true, body: strings.Repeat("x", 64), deletes: 1, remaining: 0},
		{name: "Store delete disabled", storeDelete: false, body: strings.Repeat("x", 64), deletes: 0, remaining: 1},
		{name: "Small message", storeDelete: true, body: "tiny", deletes: 0, remaining: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := newFakeQueue()
			queue.SendErr = sendErr
			store := newFakeStore("b")
			client := newTestClient(queue, store, WithThreshold(10), WithStoreDelete(tt.storeDelete))

			id, err := client.Send(context.Background(), testQueueURL, &Message{Body: tt.body})
			assert.ErrorIs(t, err, ErrTransport)
			assert.Empty(t, id)
			assert.Len(t, store.deletes, tt.deletes)
			assert.Len(t, store.objects, tt.remaining)
		})
	}
}

func TestClient_DeleteBatch(t *testing.T) {
	codec := EnvelopeCodec{}
	entries := []DeleteEntry{
		{ID: "1", ReceiptHandle: "AQEBplain1"},
		{ID: "2", ReceiptHandle: codec.Encode("AQEBa1", Locator{Location: "bucket-a", Key: "a1"})},
		{ID: "3", ReceiptHandle: codec.Encode("AQEBb1", Locator{Location: "bucket-b", Key: "b1"})},
		{ID: "4", ReceiptHandle: codec.Encode("AQEBa2", Locator{Location: "bucket-a", Key: "a2"})},
		{ID: "5", ReceiptHandle: "AQEBplain2"},
	}
	decoded := []DeleteEntry{
		{ID: "1", ReceiptHandle: "AQEBplain1"},
		{ID: "2", ReceiptHandle: "AQEBa1"},
		{ID: "3", ReceiptHandle: "AQEBb1"},
		{ID: "4", ReceiptHandle: "AQEBa2"},
		{ID: "5", ReceiptHandle: "AQEBplain2"},
	}

	t.Run("Store delete enabled", func(t *testing.T) {
		queue := newFakeQueue()
		store := newFakeStore("unused")
		client := newTestClient(queue, store, WithStoreDelete(true))

		result, err := client.DeleteBatch(context.Background(), testQueueURL, entries)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3", "4", "5"}, result.Successful)

		require.Len(t, queue.batches, 1)
		assert.Equal(t, decoded, queue.batches[0])
		assert.True(t, codec.IsEncoded(entries[1].ReceiptHandle), "caller entries must not be modified")

		assert.ElementsMatch(t, []deleteManyCall{
			{Location: "bucket-a", Keys: []string{"a1", "a2"}},
			{Location: "bucket-b", Keys: []string{"b1"}},
		}, store.many)
	})

	t.Run("Store delete disabled", func(t *testing.T) {
		queue := newFakeQueue()
		store := newFakeStore("unused")
		client := newTestClient(queue, store)

		_, err := client.DeleteBatch(context.Background(), testQueueURL, entries)
		require.NoError(t, err)
		require.Len(t, queue.batches, 1)
		assert.Equal(t, decoded, queue.batches[0])
		assert.Empty(t, store.many)
	})

	t.Run("Both sides fail", func(t *testing.T) {
		queue := newFakeQueue()
		queue.BatchErr = errors.New("queue down")
		store := newFakeStore("unused")
		store.DeleteErr = errors.New("store down")
		client := newTestClient(queue, store, WithStoreDelete(true))

		result, err := client.DeleteBatch(context.Background(), testQueueURL, entries)
		assert.Nil(t, result)
		assert.ErrorContains(t, err, "queue down")
		assert.ErrorContains(t, err, "store down")
		assert.Len(t, queue.batches, 1)
	})

	t.Run("Store fails queue succeeds", func(t *testing.T) {
		queue := newFakeQueue()
		store := newFakeStore("unused")
		store.DeleteErr = errors.New("store down")
		client := newTestClient(queue, store, WithStoreDelete(true))

		result, err := client.DeleteBatch(context.Background(), testQueueURL, entries)
		assert.EqualError(t, err, "store down")
		require.NotNil(t, result)
		assert.Len(t, result.Successful, 5)
	})

	t.Run("Malformed handle", func(t *testing.T) {
		queue := newFakeQueue()
		client := newTestClient(queue, newFakeStore("unused"))

		_, err := client.DeleteBatch(context.Background(), testQueueURL, []DeleteEntry{{ID: "x", ReceiptHandle: envelopePrefix + "@@"}})
		assert.ErrorIs(t, err, ErrMalformedHandle)
		assert.Empty(t, queue.batches)
	})
}

func TestClient_DeleteStoreFailureSkipsQueue(t *testing.T) {
	queue := newFakeQueue()
	store := newFakeStore("b")
	store.DeleteErr = errors.New("store down")
	client := newTestClient(queue, store, WithStoreDelete(true))

	handle := EnvelopeCodec{}.Encode("AQEBorig", Locator{Location: "b", Key: "k"})
	err := client.Delete(context.Background(), testQueueURL, handle)
	assert.EqualError(t, err, "store down")
	assert.Empty(t, queue.deleted)
}

func TestClient_QueueURL(t *testing.T) {
	queue := newFakeQueue()
	queue.urls["123456789012/test-queue-name"] = testQueueURL
	ctx := context.Background()

	url, err := newTestClient(queue, newFakeStore("b")).QueueURL(ctx, "test-queue-name")
	require.NoError(t, err)
	assert.Equal(t, testQueueURL, url)

	_, err = newTestClient(queue, newFakeStore("b")).QueueURL(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidQueueName)

	_, err = newTestClient(queue, newFakeStore("b")).QueueURL(ctx, "other")
	assert.ErrorIs(t, err, ErrQueueNotFound)

	_, err = New(queue, newFakeStore("b"), "", WithLogger(quietLogger())).QueueURL(ctx, "test-queue-name")
	assert.ErrorIs(t, err, ErrMissingAccountID)
	assert.ErrorIs(t, err, ErrConfiguration)
}
