package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
)

// SettingsSync keeps one principal's preferences in sync with the store.
// The first snapshot of a missing document writes the defaults.
type SettingsSync struct {
	ctx          context.Context
	store        domain.DocumentStore
	uid          string
	fallbackName string
	live         *Live[domain.UserSettings]
	log          zerolog.Logger

	// serializes the existence check with writes of this instance
	mu           sync.Mutex
	bootstrapped bool
}

// NewSettingsSync starts following users/{uid}/settings/app. fallbackName
// seeds userName when the document has to be created.
func NewSettingsSync(ctx context.Context, store domain.DocumentStore, uid, fallbackName string) (*SettingsSync, error) {
	s := &SettingsSync{
		ctx:          ctx,
		store:        store,
		uid:          uid,
		fallbackName: fallbackName,
		log:          logger.Component("settings_sync"),
	}

	live, err := SubscribeDocument(ctx, store, domain.SettingsPath(uid), s.sanitize, s.bootstrap)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to settings: %w", err)
	}
	s.live = live
	return s, nil
}

// UID returns the owner of the settings
func (s *SettingsSync) UID() string {
	return s.uid
}

// Current returns the projected settings, or the defaults before the first snapshot
func (s *SettingsSync) Current() domain.UserSettings {
	if v, ok := s.live.Snapshot(); ok {
		return v
	}
	return domain.DefaultSettings(s.fallbackName)
}

// Live exposes the underlying projection for streaming consumers
func (s *SettingsSync) Live() *Live[domain.UserSettings] {
	return s.live
}

// Save merges the set fields of patch into the stored document and stamps
// updatedAt. A save that precedes the bootstrap creates the defaults first.
func (s *SettingsSync) Save(ctx context.Context, patch domain.SettingsPatch) error {
	doc := patch.Document()
	doc["updatedAt"] = domain.ServerTimestamp

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDocumentLocked(ctx); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := s.store.MergeWrite(ctx, domain.SettingsPath(s.uid), doc); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Close stops following the document
func (s *SettingsSync) Close() {
	s.live.Close()
}

func (s *SettingsSync) sanitize(snap domain.DocumentSnapshot) domain.UserSettings {
	return domain.SanitizeSettings(snap, s.fallbackName)
}

// bootstrap runs until the document is known to exist. Snapshots are
// delivered late, so a missing document is rechecked against the store
// before the defaults are written. The guard is local to this instance;
// concurrent bootstraps elsewhere resolve by last write.
func (s *SettingsSync) bootstrap(snap domain.DocumentSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bootstrapped {
		return
	}
	if snap.Exists {
		s.bootstrapped = true
		return
	}

	if err := s.ensureDocumentLocked(s.ctx); err != nil {
		s.log.Error().Err(err).Str("uid", s.uid).Msg("Failed to create default settings")
	}
}

func (s *SettingsSync) ensureDocumentLocked(ctx context.Context) error {
	if s.bootstrapped {
		return nil
	}

	path := domain.SettingsPath(s.uid)
	current, err := s.store.Get(ctx, path)
	if err != nil {
		return err
	}

	if !current.Exists {
		doc := domain.DefaultSettings(s.fallbackName).Document()
		doc["createdAt"] = domain.ServerTimestamp
		doc["updatedAt"] = domain.ServerTimestamp

		if err := s.store.MergeWrite(ctx, path, doc); err != nil {
			return err
		}
		s.log.Info().Str("uid", s.uid).Msg("Default settings created")
	}

	s.bootstrapped = true
	return nil
}
