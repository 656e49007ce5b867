package mqpayload

import (
	"context"
	"fmt"
	"sync"
)

// fakeQueue is an in-memory Queue. Sent messages become receivable in
// order; every receive hands out a fresh receipt handle.
type fakeQueue struct {
	mu          sync.Mutex
	pending     []*Message
	sent        []*Message
	receives    []*ReceiveRequest
	deleted     []string
	batches     [][]DeleteEntry
	urls        map[string]string
	nextID      int
	ReceiveFunc func(ctx context.Context, request *ReceiveRequest) ([]*Message, error)
	SendErr     error
	DeleteErr   error
	BatchErr    error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{urls: make(map[string]string)}
}

func (q *fakeQueue) Send(_ context.Context, _ string, message *Message) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.SendErr != nil {
		return "", q.SendErr
	}

	q.nextID++
	stored := message.clone()
	stored.ID = fmt.Sprintf("msg-%d", q.nextID)
	q.sent = append(q.sent, stored)
	q.pending = append(q.pending, stored)

	return stored.ID, nil
}

func (q *fakeQueue) Receive(ctx context.Context, _ string, request *ReceiveRequest) ([]*Message, error) {
	q.mu.Lock()
	q.receives = append(q.receives, request)
	q.mu.Unlock()

	if q.ReceiveFunc != nil {
		return q.ReceiveFunc(ctx, request)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if request.MaxMessages > 0 && request.MaxMessages < n {
		n = request.MaxMessages
	}

	out := make([]*Message, 0, n)
	for _, message := range q.pending[:n] {
		received := message.clone()
		received.ReceiptHandle = "AQEB" + received.ID + "+native/handle=="
		out = append(out, received)
	}
	q.pending = q.pending[n:]

	return out, nil
}

func (q *fakeQueue) Delete(_ context.Context, _ string, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.deleted = append(q.deleted, receiptHandle)
	return q.DeleteErr
}

func (q *fakeQueue) DeleteBatch(_ context.Context, _ string, entries []DeleteEntry) (*DeleteBatchResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.batches = append(q.batches, entries)
	if q.BatchErr != nil {
		return nil, q.BatchErr
	}

	result := &DeleteBatchResult{}
	for _, entry := range entries {
		result.Successful = append(result.Successful, entry.ID)
	}
	return result, nil
}

func (q *fakeQueue) ResolveURL(_ context.Context, name string, ownerID string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if url, ok := q.urls[ownerID+"/"+name]; ok {
		return url, nil
	}
	return "", ErrQueueNotFound
}

type deleteManyCall struct {
	Location string
	Keys     []string
}

// fakeStore is an in-memory PayloadStore.
type fakeStore struct {
	mu        sync.Mutex
	location  string
	objects   map[Locator][]byte
	encodings map[Locator]string
	puts      int
	deletes   []Locator
	many      []deleteManyCall
	nextKey   int
	PutErr    error
	DeleteErr error
}

func newFakeStore(location string) *fakeStore {
	return &fakeStore{
		location:  location,
		objects:   make(map[Locator][]byte),
		encodings: make(map[Locator]string),
	}
}

func (s *fakeStore) Put(_ context.Context, payload []byte, contentEncoding string) (Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if s.PutErr != nil {
		return Locator{}, s.PutErr
	}

	s.nextKey++
	loc := Locator{Location: s.location, Key: fmt.Sprintf("key-%d", s.nextKey)}
	s.objects[loc] = append([]byte(nil), payload...)
	s.encodings[loc] = contentEncoding

	return loc, nil
}

func (s *fakeStore) Get(_ context.Context, loc Locator) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.objects[loc]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return payload, nil
}

func (s *fakeStore) Delete(_ context.Context, loc Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes = append(s.deletes, loc)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.objects, loc)
	return nil
}

func (s *fakeStore) DeleteMany(_ context.Context, location string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.many = append(s.many, deleteManyCall{Location: location, Keys: append([]string(nil), keys...)})
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	for _, key := range keys {
		delete(s.objects, Locator{Location: location, Key: key})
	}
	return nil
}

func (s *fakeStore) put(loc Locator, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[loc] = payload
}
