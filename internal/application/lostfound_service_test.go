package application

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/infrastructure/blob"
	"github.com/hotelops/backoffice/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPhotos struct{}

func (failingPhotos) Put(ctx context.Context, key string, body io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingPhotos) Delete(ctx context.Context, key string) error {
	return errors.New("bucket unavailable")
}

func newLostFound(t *testing.T, photos PhotoStorage) (*LostFoundService, *memory.DocumentStore) {
	t.Helper()

	store := memory.NewDocumentStore()
	svc, err := NewLostFoundService(context.Background(), store, photos)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, store
}

func TestLostFoundService_RegisterAndReturn(t *testing.T) {
	ctx := context.Background()
	svc, store := newLostFound(t, nil)
	clerk := staff("u1", "Alice")
	foundAt := time.Date(2026, 2, 14, 22, 0, 0, 0, time.UTC)

	item, err := svc.Register(ctx, clerk, " Black umbrella ", "Lobby", foundAt)
	require.NoError(t, err)
	assert.Equal(t, "Black umbrella", item.Description)
	assert.Equal(t, "Alice", item.FoundBy)
	assert.Equal(t, domain.LostItemStored, item.Status)

	require.Eventually(t, func() bool {
		items, err := svc.Items(clerk)
		return err == nil && len(items) == 1
	}, waitFor, tick)

	require.NoError(t, svc.MarkReturned(ctx, clerk, item.ID, " Mr Smith "))

	snap, err := store.Get(ctx, domain.JoinPath(domain.LostItemsCollection, item.ID))
	require.NoError(t, err)
	stored := domain.LostItemFromSnapshot(snap)
	assert.Equal(t, domain.LostItemReturned, stored.Status)
	assert.Equal(t, "Mr Smith", stored.ReturnedTo)
	assert.True(t, foundAt.Equal(stored.FoundAt))
}

func TestLostFoundService_RegisterDefaultsFoundAt(t *testing.T) {
	svc, _ := newLostFound(t, nil)

	before := time.Now()
	item, err := svc.Register(context.Background(), staff("u1", "Alice"), "Scarf", "", time.Time{})
	require.NoError(t, err)
	assert.False(t, item.FoundAt.Before(before))
}

func TestLostFoundService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store := newLostFound(t, nil)
	clerk := staff("u1", "Alice")

	_, err := svc.Register(ctx, clerk, "  ", "Lobby", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.ErrorIs(t, svc.MarkReturned(ctx, clerk, "missing", "Guest"), domain.ErrNotFound)

	outsider := clerk
	outsider.Permissions = outsider.Permissions.With(domain.CanViewReception, false)
	_, err = svc.Register(ctx, outsider, "Scarf", "Bar", time.Now())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Zero(t, store.Len())
}

func TestLostFoundService_AttachPhoto(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc, store := newLostFound(t, blob.NewLocalStorage(dir, "/photos"))
	clerk := staff("u1", "Alice")

	item, err := svc.Register(ctx, clerk, "Watch", "Spa", time.Now())
	require.NoError(t, err)

	url, err := svc.AttachPhoto(ctx, clerk, item.ID, "IMG_0001.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/photos/lostfound/"+item.ID+"/"), url)
	assert.True(t, strings.HasSuffix(url, ".jpg"), url)

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/photos/")))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	snap, err := store.Get(ctx, domain.JoinPath(domain.LostItemsCollection, item.ID))
	require.NoError(t, err)
	assert.Equal(t, url, domain.LostItemFromSnapshot(snap).PhotoURL)
}

func TestLostFoundService_ReplacingPhotoRemovesPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc, store := newLostFound(t, blob.NewLocalStorage(dir, "/photos"))
	clerk := staff("u1", "Alice")

	item, err := svc.Register(ctx, clerk, "Umbrella", "Lobby", time.Now())
	require.NoError(t, err)

	first, err := svc.AttachPhoto(ctx, clerk, item.ID, "a.jpg", strings.NewReader("first"))
	require.NoError(t, err)
	second, err := svc.AttachPhoto(ctx, clerk, item.ID, "b.jpg", strings.NewReader("second"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(first, "/photos/")))
	assert.True(t, os.IsNotExist(err), "replaced photo removed")

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(second, "/photos/")))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	snap, err := store.Get(ctx, domain.JoinPath(domain.LostItemsCollection, item.ID))
	require.NoError(t, err)
	assert.Equal(t, second, domain.LostItemFromSnapshot(snap).PhotoURL)
}

func TestLostFoundService_AttachPhotoFailures(t *testing.T) {
	ctx := context.Background()
	clerk := staff("u1", "Alice")

	t.Run("no storage", func(t *testing.T) {
		svc, _ := newLostFound(t, nil)
		item, err := svc.Register(ctx, clerk, "Watch", "Spa", time.Now())
		require.NoError(t, err)

		_, err = svc.AttachPhoto(ctx, clerk, item.ID, "a.jpg", strings.NewReader("x"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
	})

	t.Run("storage error leaves item untouched", func(t *testing.T) {
		svc, store := newLostFound(t, failingPhotos{})
		item, err := svc.Register(ctx, clerk, "Watch", "Spa", time.Now())
		require.NoError(t, err)

		_, err = svc.AttachPhoto(ctx, clerk, item.ID, "a.jpg", strings.NewReader("x"))
		assert.ErrorContains(t, err, "bucket unavailable")

		snap, err := store.Get(ctx, domain.JoinPath(domain.LostItemsCollection, item.ID))
		require.NoError(t, err)
		assert.Empty(t, domain.LostItemFromSnapshot(snap).PhotoURL)
	})

	t.Run("unknown item", func(t *testing.T) {
		svc, _ := newLostFound(t, failingPhotos{})
		_, err := svc.AttachPhoto(ctx, clerk, "missing", "a.jpg", strings.NewReader("x"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
