package application

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
)

// PhotoStorage stores lost-and-found photos and returns their public URL
type PhotoStorage interface {
	Put(ctx context.Context, key string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// LostFoundService manages the lost-and-found inventory. Every operation
// requires the reception capability.
type LostFoundService struct {
	store  domain.DocumentStore
	photos PhotoStorage
	items  *Live[[]domain.LostItem]
	log    zerolog.Logger
}

// NewLostFoundService starts following the inventory
func NewLostFoundService(ctx context.Context, store domain.DocumentStore, photos PhotoStorage) (*LostFoundService, error) {
	items, err := SubscribeQuery(ctx, store, domain.LostItemsCollection, decodeLostItems)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to lost and found: %w", err)
	}

	return &LostFoundService{
		store:  store,
		photos: photos,
		items:  items,
		log:    logger.Component("lostfound"),
	}, nil
}

// Items returns the inventory, newest first
func (s *LostFoundService) Items(caller domain.Principal) ([]domain.LostItem, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return nil, err
	}
	items, _ := s.items.Snapshot()
	return items, nil
}

// Register records a found item. foundAt defaults to now.
func (s *LostFoundService) Register(ctx context.Context, caller domain.Principal, description, location string, foundAt time.Time) (domain.LostItem, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return domain.LostItem{}, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.LostItem{}, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}
	if foundAt.IsZero() {
		foundAt = time.Now()
	}

	item := domain.NewLostItem(description, strings.TrimSpace(location), caller.DisplayName, foundAt)
	if err := s.store.MergeWrite(ctx, domain.JoinPath(domain.LostItemsCollection, item.ID), item.Document()); err != nil {
		return domain.LostItem{}, fmt.Errorf("failed to register item: %w", err)
	}

	s.log.Info().Str("uid", caller.UID).Str("item_id", item.ID).Msg("Lost item registered")
	return item, nil
}

// MarkReturned records that an item went back to its owner
func (s *LostFoundService) MarkReturned(ctx context.Context, caller domain.Principal, id, returnedTo string) error {
	itemPath, _, err := s.existing(ctx, caller, id)
	if err != nil {
		return err
	}

	patch := domain.Document{
		"status":     string(domain.LostItemReturned),
		"returnedTo": strings.TrimSpace(returnedTo),
	}
	if err := s.store.MergeWrite(ctx, itemPath, patch); err != nil {
		return fmt.Errorf("failed to mark item returned: %w", err)
	}
	return nil
}

// AttachPhoto stores a photo of an item and links it from the item. A
// replaced photo is removed from storage once the new one is linked.
func (s *LostFoundService) AttachPhoto(ctx context.Context, caller domain.Principal, id, filename string, body io.Reader) (string, error) {
	itemPath, snap, err := s.existing(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if s.photos == nil {
		return "", fmt.Errorf("%w: no photo storage configured", domain.ErrUnsupportedOperation)
	}

	key := path.Join(domain.LostItemsCollection, id, uuid.New().String()+strings.ToLower(path.Ext(filename)))
	url, err := s.photos.Put(ctx, key, body)
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}

	if err := s.store.MergeWrite(ctx, itemPath, domain.Document{"photoUrl": url, "photoKey": key}); err != nil {
		if delErr := s.photos.Delete(ctx, key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key).Msg("Failed to remove unlinked photo")
		}
		return "", fmt.Errorf("failed to link photo: %w", err)
	}

	s.log.Info().Str("uid", caller.UID).Str("item_id", id).Str("key", key).Msg("Photo attached")

	if previous, _ := snap.Data["photoKey"].(string); previous != "" && previous != key {
		if err := s.photos.Delete(ctx, previous); err != nil {
			s.log.Warn().Err(err).Str("key", previous).Msg("Failed to remove replaced photo")
		}
	}
	return url, nil
}

// Feed exposes the projection for streaming consumers
func (s *LostFoundService) Feed() *Live[[]domain.LostItem] {
	return s.items
}

// Close stops following the inventory
func (s *LostFoundService) Close() {
	s.items.Close()
}

func (s *LostFoundService) existing(ctx context.Context, caller domain.Principal, id string) (string, domain.DocumentSnapshot, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return "", domain.DocumentSnapshot{}, err
	}
	if err := requireID(id); err != nil {
		return "", domain.DocumentSnapshot{}, err
	}

	itemPath := domain.JoinPath(domain.LostItemsCollection, id)
	snap, err := s.store.Get(ctx, itemPath)
	if err != nil {
		return "", domain.DocumentSnapshot{}, err
	}
	if !snap.Exists {
		return "", domain.DocumentSnapshot{}, fmt.Errorf("lost item %s: %w", id, domain.ErrNotFound)
	}
	return itemPath, snap, nil
}

func decodeLostItems(snap domain.QuerySnapshot) []domain.LostItem {
	items := make([]domain.LostItem, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		items = append(items, domain.LostItemFromSnapshot(doc))
	}
	return items
}
