package application

import (
	"context"
	"sync"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
)

type documentWatch struct {
	onChange func(domain.DocumentSnapshot)
	onError  func(error)
}

// manualStore is a DocumentStore whose subscriptions are driven by the test.
// Writes are recorded and applied, but never announced.
type manualStore struct {
	mu           sync.Mutex
	docs         map[string]domain.Document
	writes       []string
	watches      map[string][]documentWatch
	unsubscribed int
	writeErr     error
}

func newManualStore() *manualStore {
	return &manualStore{
		docs:    make(map[string]domain.Document),
		watches: make(map[string][]documentWatch),
	}
}

func (s *manualStore) Get(ctx context.Context, path string) (domain.DocumentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[path]
	return domain.DocumentSnapshot{Path: path, Exists: ok, Data: data.Clone()}, nil
}

func (s *manualStore) MergeWrite(ctx context.Context, path string, partial domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, path)
	s.docs[path] = domain.ResolveMerge(s.docs[path], partial, time.Now())
	return nil
}

func (s *manualStore) DeleteDocument(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, path)
	return nil
}

func (s *manualStore) SubscribeSnapshot(ctx context.Context, path string, onChange func(domain.DocumentSnapshot), onError func(error)) (domain.Unsubscribe, error) {
	s.mu.Lock()
	s.watches[path] = append(s.watches[path], documentWatch{onChange: onChange, onError: onError})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.unsubscribed++
		s.mu.Unlock()
	}, nil
}

func (s *manualStore) SubscribeQuery(ctx context.Context, collection string, onChange func(domain.QuerySnapshot), onError func(error)) (domain.Unsubscribe, error) {
	return func() {}, nil
}

func (s *manualStore) emit(path string, snap domain.DocumentSnapshot) {
	s.mu.Lock()
	watches := append([]documentWatch(nil), s.watches[path]...)
	s.mu.Unlock()

	for _, w := range watches {
		w.onChange(snap)
	}
}

func (s *manualStore) fail(path string, err error) {
	s.mu.Lock()
	watches := append([]documentWatch(nil), s.watches[path]...)
	s.mu.Unlock()

	for _, w := range watches {
		w.onError(err)
	}
}

func (s *manualStore) writesTo(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.writes {
		if p == path {
			n++
		}
	}
	return n
}

func (s *manualStore) stored(path string) domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[path].Clone()
}
