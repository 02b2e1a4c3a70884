package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func themeOf(snap domain.DocumentSnapshot) domain.ThemeColor {
	return domain.SanitizeThemeColor(snap.Data["themeColor"])
}

func TestLive_PublishesSanitizedSnapshots(t *testing.T) {
	store := newManualStore()
	live, err := SubscribeDocument(context.Background(), store, "users/u1/settings/app", themeOf, nil)
	require.NoError(t, err)
	defer live.Close()

	_, ok := live.Snapshot()
	assert.False(t, ok)

	store.emit("users/u1/settings/app", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "neon"}})
	v, ok := live.Snapshot()
	require.True(t, ok)
	assert.Equal(t, domain.DefaultThemeColor, v)

	store.emit("users/u1/settings/app", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "teal"}})
	v, _ = live.Snapshot()
	assert.Equal(t, domain.ThemeColor("teal"), v)
}

func TestLive_ErrorIsStickyUntilNextSnapshot(t *testing.T) {
	store := newManualStore()
	live, err := SubscribeDocument(context.Background(), store, "doc/a", themeOf, nil)
	require.NoError(t, err)
	defer live.Close()

	store.emit("doc/a", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "rose"}})
	store.fail("doc/a", domain.ErrStoreUnavailable)

	v, ok := live.Snapshot()
	require.True(t, ok)
	assert.Equal(t, domain.ThemeColor("rose"), v, "last good value stays visible")
	assert.ErrorIs(t, live.Err(), domain.ErrStoreUnavailable)

	store.fail("doc/a", errors.New("still down"))
	assert.Error(t, live.Err())

	store.emit("doc/a", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "slate"}})
	assert.NoError(t, live.Err())
	v, _ = live.Snapshot()
	assert.Equal(t, domain.ThemeColor("slate"), v)
}

func TestLive_OverlayAppliesUntilNextSnapshot(t *testing.T) {
	store := newManualStore()
	live, err := SubscribeDocument(context.Background(), store, "doc/a", themeOf, nil)
	require.NoError(t, err)
	defer live.Close()

	store.emit("doc/a", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "rose"}})
	live.Overlay(func(domain.ThemeColor) domain.ThemeColor { return "amber" })

	v, _ := live.Snapshot()
	assert.Equal(t, domain.ThemeColor("amber"), v)

	store.emit("doc/a", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "rose"}})
	v, _ = live.Snapshot()
	assert.Equal(t, domain.ThemeColor("rose"), v, "overlay is dropped by the next snapshot")

	live.Overlay(func(domain.ThemeColor) domain.ThemeColor { return "amber" })
	live.ClearOverlay()
	v, _ = live.Snapshot()
	assert.Equal(t, domain.ThemeColor("rose"), v)
}

func TestLive_ChangedSignalsEveryUpdate(t *testing.T) {
	store := newManualStore()
	live, err := SubscribeDocument(context.Background(), store, "doc/a", themeOf, nil)
	require.NoError(t, err)

	changed := live.Changed()
	select {
	case <-changed:
		t.Fatal("no update yet")
	default:
	}

	store.emit("doc/a", domain.DocumentSnapshot{Exists: true})
	select {
	case <-changed:
	default:
		t.Fatal("expected change signal")
	}

	next := live.Changed()
	live.Close()
	select {
	case <-next:
	default:
		t.Fatal("close must wake waiters")
	}
	select {
	case <-live.Done():
	default:
		t.Fatal("done not closed")
	}

	store.emit("doc/a", domain.DocumentSnapshot{Exists: true, Data: domain.Document{"themeColor": "teal"}})
	v, _ := live.Snapshot()
	assert.Equal(t, domain.DefaultThemeColor, v, "snapshots after close are ignored")
	assert.Equal(t, 1, store.unsubscribed)

	live.Close()
	assert.Equal(t, 1, store.unsubscribed)
}

func TestLive_RawHookSeesEverySnapshot(t *testing.T) {
	store := newManualStore()
	var seen []bool
	live, err := SubscribeDocument(context.Background(), store, "doc/a", themeOf, func(snap domain.DocumentSnapshot) {
		seen = append(seen, snap.Exists)
	})
	require.NoError(t, err)
	defer live.Close()

	store.emit("doc/a", domain.DocumentSnapshot{})
	store.emit("doc/a", domain.DocumentSnapshot{Exists: true})
	assert.Equal(t, []bool{false, true}, seen)
}

func TestSubscribeQuery_FollowsMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()

	live, err := SubscribeQuery(ctx, store, domain.LogbookCollection, domain.LogEntriesFromQuery)
	require.NoError(t, err)
	defer live.Close()

	require.NoError(t, store.MergeWrite(ctx, domain.LogEntryPath("e1"), domain.Document{"message": "first"}))
	require.NoError(t, store.MergeWrite(ctx, domain.LogEntryPath("e2"), domain.Document{"message": "second"}))

	assert.Eventually(t, func() bool {
		entries, ok := live.Snapshot()
		return ok && len(entries) == 2 && entries[0].ID == "e2"
	}, time.Second, 5*time.Millisecond)
}
