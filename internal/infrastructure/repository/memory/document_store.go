package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
)

type record struct {
	data      domain.Document
	seq       int64
	createdAt time.Time
	updatedAt time.Time
}

type docWatcher struct {
	path     string
	mailbox  *mailbox
	onChange func(domain.DocumentSnapshot)
}

type queryWatcher struct {
	collection string
	mailbox    *mailbox
	onChange   func(domain.QuerySnapshot)
}

// DocumentStore is an in-process domain.DocumentStore used for development
// mode and tests. Change notifications are delivered asynchronously, in
// order, on one goroutine per subscription.
type DocumentStore struct {
	mu        sync.RWMutex
	docs      map[string]*record
	docSubs   map[int]*docWatcher
	querySubs map[int]*queryWatcher
	nextID    int
	seq       int64
	now       func() time.Time
}

// NewDocumentStore creates an empty store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:      make(map[string]*record),
		docSubs:   make(map[int]*docWatcher),
		querySubs: make(map[int]*queryWatcher),
		now:       time.Now,
	}
}

// Get returns the current snapshot of a document
func (s *DocumentStore) Get(ctx context.Context, path string) (domain.DocumentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.DocumentSnapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(path), nil
}

// MergeWrite merges partial into the document, creating it if absent
func (s *DocumentStore) MergeWrite(ctx context.Context, path string, partial domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	now := s.now()
	rec, ok := s.docs[path]
	if !ok {
		s.seq++
		rec = &record{seq: s.seq, createdAt: now}
		s.docs[path] = rec
	}
	rec.data = domain.ResolveMerge(rec.data, partial, now)
	rec.updatedAt = now
	s.notifyLocked(path)
	s.mu.Unlock()

	return nil
}

// DeleteDocument removes a document. Deleting a missing document is not an error.
func (s *DocumentStore) DeleteDocument(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.docs[path]; ok {
		delete(s.docs, path)
		s.notifyLocked(path)
	}
	s.mu.Unlock()

	return nil
}

// SubscribeSnapshot delivers the current state of the document and every later change
func (s *DocumentStore) SubscribeSnapshot(ctx context.Context, path string, onChange func(domain.DocumentSnapshot), onError func(error)) (domain.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &docWatcher{path: path, mailbox: newMailbox(), onChange: onChange}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.docSubs[id] = w
	snap := s.snapshotLocked(path)
	w.mailbox.push(func() { w.onChange(snap) })
	s.mu.Unlock()

	return s.unsubscriber(func() {
		delete(s.docSubs, id)
	}, w.mailbox), nil
}

// SubscribeQuery delivers the current state of the collection and every later change
func (s *DocumentStore) SubscribeQuery(ctx context.Context, collection string, onChange func(domain.QuerySnapshot), onError func(error)) (domain.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &queryWatcher{collection: collection, mailbox: newMailbox(), onChange: onChange}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.querySubs[id] = w
	snap := s.querySnapshotLocked(collection)
	w.mailbox.push(func() { w.onChange(snap) })
	s.mu.Unlock()

	return s.unsubscriber(func() {
		delete(s.querySubs, id)
	}, w.mailbox), nil
}

func (s *DocumentStore) unsubscriber(remove func(), mb *mailbox) domain.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove()
			s.mu.Unlock()
			mb.close()
		})
	}
}

func (s *DocumentStore) notifyLocked(path string) {
	collection := domain.CollectionOf(path)

	for _, w := range s.docSubs {
		if w.path != path {
			continue
		}
		w := w
		snap := s.snapshotLocked(path)
		w.mailbox.push(func() { w.onChange(snap) })
	}

	var query *domain.QuerySnapshot
	for _, w := range s.querySubs {
		if w.collection != collection {
			continue
		}
		if query == nil {
			q := s.querySnapshotLocked(collection)
			query = &q
		}
		w := w
		snap := cloneQuery(*query)
		w.mailbox.push(func() { w.onChange(snap) })
	}
}

func (s *DocumentStore) snapshotLocked(path string) domain.DocumentSnapshot {
	rec, ok := s.docs[path]
	if !ok {
		return domain.DocumentSnapshot{Path: path}
	}
	return domain.DocumentSnapshot{
		Path:      path,
		Exists:    true,
		Data:      rec.data.Clone(),
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
	}
}

func (s *DocumentStore) querySnapshotLocked(collection string) domain.QuerySnapshot {
	var paths []string
	for path := range s.docs {
		if domain.CollectionOf(path) == collection {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return s.docs[paths[i]].seq > s.docs[paths[j]].seq })

	snap := domain.QuerySnapshot{Collection: collection, Docs: make([]domain.DocumentSnapshot, 0, len(paths))}
	for _, path := range paths {
		snap.Docs = append(snap.Docs, s.snapshotLocked(path))
	}
	return snap
}

func cloneQuery(q domain.QuerySnapshot) domain.QuerySnapshot {
	docs := make([]domain.DocumentSnapshot, len(q.Docs))
	for i, d := range q.Docs {
		d.Data = d.Data.Clone()
		docs[i] = d
	}
	return domain.QuerySnapshot{Collection: q.Collection, Docs: docs}
}

// Len returns the number of stored documents
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
