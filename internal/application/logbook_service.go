package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
)

// LogbookService persists logbook entries and shares one live feed of them
type LogbookService struct {
	store domain.DocumentStore
	feed  *Live[[]domain.LogEntry]
	log   zerolog.Logger
}

// NewLogbookService starts following the logbook collection
func NewLogbookService(ctx context.Context, store domain.DocumentStore) (*LogbookService, error) {
	feed, err := SubscribeQuery(ctx, store, domain.LogbookCollection, domain.LogEntriesFromQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to logbook: %w", err)
	}

	return &LogbookService{
		store: store,
		feed:  feed,
		log:   logger.Component("logbook"),
	}, nil
}

// PostEntry is the content of a new logbook entry
type PostEntry struct {
	Message  string
	Priority domain.LogPriority
	Target   domain.LogTarget
}

// Post appends an entry authored by the caller
func (s *LogbookService) Post(ctx context.Context, caller domain.Principal, input PostEntry) (domain.LogEntry, error) {
	if err := requirePrincipal(caller); err != nil {
		return domain.LogEntry{}, err
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return domain.LogEntry{}, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	entry := domain.LogEntry{
		ID:       uuid.New().String(),
		Author:   caller.DisplayName,
		Message:  message,
		Priority: domain.ParseLogPriority(string(input.Priority)),
		Target:   domain.ParseLogTarget(string(input.Target)),
		Status:   domain.StatusActive,
		ReadBy:   []string{},
	}

	if err := s.store.MergeWrite(ctx, domain.LogEntryPath(entry.ID), entry.Document()); err != nil {
		return domain.LogEntry{}, fmt.Errorf("failed to post entry: %w", err)
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("uid", caller.UID).
		Str("priority", string(entry.Priority)).
		Msg("Logbook entry posted")
	return entry, nil
}

// SetArchived flips the status of an entry. Entries are never deleted.
func (s *LogbookService) SetArchived(ctx context.Context, caller domain.Principal, id string, archived bool) error {
	entry, err := s.get(ctx, caller, id)
	if err != nil {
		return err
	}

	if archived {
		entry = domain.Archive(entry)
	} else {
		entry = domain.Unarchive(entry)
	}

	if err := s.store.MergeWrite(ctx, domain.LogEntryPath(id), domain.Document{"status": string(entry.Status)}); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return nil
}

// MarkRead adds the caller to the readers of an entry. Idempotent.
func (s *LogbookService) MarkRead(ctx context.Context, caller domain.Principal, id string) error {
	entry, err := s.get(ctx, caller, id)
	if err != nil {
		return err
	}
	if entry.IsReadBy(caller.UID) {
		return nil
	}

	patch := domain.Document{"readBy": domain.ArrayUnion(caller.UID)}
	if err := s.store.MergeWrite(ctx, domain.LogEntryPath(id), patch); err != nil {
		return fmt.Errorf("failed to mark entry read: %w", err)
	}
	return nil
}

// Entries returns the projected entries, newest first
func (s *LogbookService) Entries() []domain.LogEntry {
	entries, _ := s.feed.Snapshot()
	return entries
}

// View returns the projected entries matching filter
func (s *LogbookService) View(filter domain.LogFilter) []domain.LogEntry {
	return domain.FilterLog(s.Entries(), filter)
}

// Feed exposes the shared projection for streaming consumers
func (s *LogbookService) Feed() *Live[[]domain.LogEntry] {
	return s.feed
}

// Close stops following the logbook
func (s *LogbookService) Close() {
	s.feed.Close()
}

func (s *LogbookService) get(ctx context.Context, caller domain.Principal, id string) (domain.LogEntry, error) {
	if err := requirePrincipal(caller); err != nil {
		return domain.LogEntry{}, err
	}
	if err := requireID(id); err != nil {
		return domain.LogEntry{}, err
	}

	snap, err := s.store.Get(ctx, domain.LogEntryPath(id))
	if err != nil {
		return domain.LogEntry{}, err
	}
	if !snap.Exists {
		return domain.LogEntry{}, fmt.Errorf("logbook entry %s: %w", id, domain.ErrNotFound)
	}
	return domain.LogEntryFromSnapshot(snap), nil
}
