package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ChangeFeed carries change notifications between writers and subscribers.
// Watch calls notify after every publish on a channel and onError when the
// feed connection fails.
type ChangeFeed interface {
	Publish(ctx context.Context, path string) error
	Watch(ctx context.Context, channel string, notify func(), onError func(error)) (domain.Unsubscribe, error)
	DocumentChannel(path string) string
	CollectionChannel(collection string) string
}

// DocumentStore implements domain.DocumentStore on a JSONB table. Live
// subscriptions re-read the table whenever the change feed signals a write.
type DocumentStore struct {
	pool *pgxpool.Pool
	feed ChangeFeed
	log  zerolog.Logger
}

// NewDocumentStore creates a new PostgreSQL document store
func NewDocumentStore(pool *pgxpool.Pool, feed ChangeFeed) *DocumentStore {
	return &DocumentStore{
		pool: pool,
		feed: feed,
		log:  logger.Component("document_store"),
	}
}

// Get retrieves a document snapshot by path
func (s *DocumentStore) Get(ctx context.Context, path string) (domain.DocumentSnapshot, error) {
	query := `SELECT data, created_at, updated_at FROM documents WHERE path = $1`

	snap := domain.DocumentSnapshot{Path: path}
	var raw []byte
	err := s.pool.QueryRow(ctx, query, path).Scan(&raw, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	data, err := decodeDocument(raw)
	if err != nil {
		return snap, err
	}
	snap.Exists = true
	snap.Data = data
	return snap, nil
}

// MergeWrite merges partial into the stored document inside one
// transaction. The row is created empty first so the FOR UPDATE read always
// has a row to lock and concurrent first writes merge in turn.
func (s *DocumentStore) MergeWrite(ctx context.Context, path string, partial domain.Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	insert := `
		INSERT INTO documents (path, collection, data, created_at, updated_at)
		VALUES ($1, $2, '{}'::jsonb, $3, $3)
		ON CONFLICT (path) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, path, domain.CollectionOf(path), now); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1 FOR UPDATE`, path).Scan(&raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	existing, err := decodeDocument(raw)
	if err != nil {
		return err
	}

	merged, err := json.Marshal(domain.ResolveMerge(existing, partial, now))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE documents SET data = $2, updated_at = $3 WHERE path = $1`, path, merged, now); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	s.publish(ctx, path)
	return nil
}

// DeleteDocument removes a document
func (s *DocumentStore) DeleteDocument(ctx context.Context, path string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.publish(ctx, path)
	}
	return nil
}

func (s *DocumentStore) publish(ctx context.Context, path string) {
	if err := s.feed.Publish(ctx, path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to publish document change")
	}
}

// SubscribeSnapshot delivers the document now and after every change.
// The subscription lives until the returned Unsubscribe is called or ctx ends.
func (s *DocumentStore) SubscribeSnapshot(ctx context.Context, path string, onChange func(domain.DocumentSnapshot), onError func(error)) (domain.Unsubscribe, error) {
	return s.watch(ctx, s.feed.DocumentChannel(path), onError, func(ctx context.Context) error {
		snap, err := s.Get(ctx, path)
		if err != nil {
			return err
		}
		onChange(snap)
		return nil
	})
}

// SubscribeQuery delivers the collection now and after every change
func (s *DocumentStore) SubscribeQuery(ctx context.Context, collection string, onChange func(domain.QuerySnapshot), onError func(error)) (domain.Unsubscribe, error) {
	return s.watch(ctx, s.feed.CollectionChannel(collection), onError, func(ctx context.Context) error {
		snap, err := s.query(ctx, collection)
		if err != nil {
			return err
		}
		onChange(snap)
		return nil
	})
}

// watch runs deliver once up front and again after each notification.
// Notifications arriving while a delivery runs are coalesced into one.
func (s *DocumentStore) watch(ctx context.Context, channel string, onError func(error), deliver func(context.Context) error) (domain.Unsubscribe, error) {
	subCtx, cancel := context.WithCancel(ctx)
	kick := make(chan struct{}, 1)
	kick <- struct{}{}

	notify := func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	}

	stopFeed, err := s.feed.Watch(subCtx, channel, notify, onError)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case <-kick:
			}
			if err := deliver(subCtx); err != nil && subCtx.Err() == nil {
				onError(err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			stopFeed()
		})
	}, nil
}

func (s *DocumentStore) query(ctx context.Context, collection string) (domain.QuerySnapshot, error) {
	query := `
		SELECT path, data, created_at, updated_at
		FROM documents WHERE collection = $1 ORDER BY created_at DESC, path DESC
	`

	snap := domain.QuerySnapshot{Collection: collection, Docs: []domain.DocumentSnapshot{}}
	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return snap, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		doc := domain.DocumentSnapshot{Exists: true}
		var raw []byte
		if err := rows.Scan(&doc.Path, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return snap, err
		}
		if doc.Data, err = decodeDocument(raw); err != nil {
			return snap, err
		}
		snap.Docs = append(snap.Docs, doc)
	}

	return snap, rows.Err()
}

func decodeDocument(raw []byte) (domain.Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return domain.Document(data), nil
}
