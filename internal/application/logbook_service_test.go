package application

import (
	"context"
	"testing"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staff(uid, name string) domain.Principal {
	return domain.NewPrincipal(domain.Account{UID: uid, Email: uid + "@hotel.local", DisplayName: name}, domain.RoleStaff)
}

func newLogbook(t *testing.T) (*LogbookService, *memory.DocumentStore) {
	t.Helper()

	store := memory.NewDocumentStore()
	svc, err := NewLogbookService(context.Background(), store)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, store
}

func TestLogbookService_Post(t *testing.T) {
	ctx := context.Background()
	svc, store := newLogbook(t)
	alice := staff("u1", "Alice")

	entry, err := svc.Post(ctx, alice, PostEntry{Message: "  Room 12 needs towels ", Priority: "urgent", Target: "housekeeping"})
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "Alice", entry.Author)
	assert.Equal(t, "Room 12 needs towels", entry.Message)
	assert.Equal(t, domain.PriorityUrgent, entry.Priority)
	assert.Equal(t, domain.TargetHousekeeping, entry.Target)
	assert.Equal(t, domain.StatusActive, entry.Status)

	snap, err := store.Get(ctx, domain.LogEntryPath(entry.ID))
	require.NoError(t, err)
	stored := domain.LogEntryFromSnapshot(snap)
	assert.False(t, stored.Timestamp.IsZero())
	assert.Empty(t, stored.ReadBy)

	require.Eventually(t, func() bool { return len(svc.Entries()) == 1 }, waitFor, tick)
	assert.Equal(t, entry.ID, svc.Entries()[0].ID)
}

func TestLogbookService_PostNormalizesUnknownValues(t *testing.T) {
	svc, _ := newLogbook(t)

	entry, err := svc.Post(context.Background(), staff("u1", "Alice"), PostEntry{Message: "hi", Priority: "critical", Target: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityInfo, entry.Priority)
	assert.Equal(t, domain.TargetAll, entry.Target)
}

func TestLogbookService_PostValidation(t *testing.T) {
	ctx := context.Background()
	svc, store := newLogbook(t)

	_, err := svc.Post(ctx, domain.Principal{}, PostEntry{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = svc.Post(ctx, staff("u1", "Alice"), PostEntry{Message: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Zero(t, store.Len())
}

func TestLogbookService_ArchiveAndRestore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLogbook(t)
	alice := staff("u1", "Alice")

	entry, err := svc.Post(ctx, alice, PostEntry{Message: "Late checkout 204"})
	require.NoError(t, err)

	require.NoError(t, svc.SetArchived(ctx, alice, entry.ID, true))
	require.Eventually(t, func() bool {
		return len(svc.View(domain.LogFilter{ShowArchived: true})) == 1 &&
			len(svc.View(domain.LogFilter{})) == 0
	}, waitFor, tick)

	require.NoError(t, svc.SetArchived(ctx, alice, entry.ID, false))
	assert.Eventually(t, func() bool {
		return len(svc.View(domain.LogFilter{})) == 1
	}, waitFor, tick)
}

func TestLogbookService_MarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newLogbook(t)
	alice := staff("u1", "Alice")
	bob := staff("u2", "Bob")

	entry, err := svc.Post(ctx, alice, PostEntry{Message: "VIP arriving"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, bob, entry.ID))
	require.NoError(t, svc.MarkRead(ctx, bob, entry.ID))
	require.NoError(t, svc.MarkRead(ctx, alice, entry.ID))

	snap, err := store.Get(ctx, domain.LogEntryPath(entry.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, domain.LogEntryFromSnapshot(snap).ReadBy)
}

func TestLogbookService_UnknownEntry(t *testing.T) {
	ctx := context.Background()
	svc, store := newLogbook(t)
	alice := staff("u1", "Alice")

	assert.ErrorIs(t, svc.MarkRead(ctx, alice, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.SetArchived(ctx, alice, "missing", true), domain.ErrNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, alice, "../users/u1"), domain.ErrInvalidInput)
	assert.Zero(t, store.Len())
}

func TestLogbookService_ViewAppliesFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLogbook(t)
	alice := staff("u1", "Alice")
	bob := staff("u2", "Bob")

	_, err := svc.Post(ctx, alice, PostEntry{Message: "Pool closed", Priority: domain.PriorityImportant})
	require.NoError(t, err)
	_, err = svc.Post(ctx, bob, PostEntry{Message: "Fire drill", Priority: domain.PriorityUrgent})
	require.NoError(t, err)
	_, err = svc.Post(ctx, bob, PostEntry{Message: "pool towels restocked"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(svc.Entries()) == 3 }, waitFor, tick)

	pool := svc.View(domain.LogFilter{SearchText: "POOL"})
	require.Len(t, pool, 2)
	assert.Equal(t, "pool towels restocked", pool[0].Message, "newest first")

	mine := svc.View(domain.LogFilter{QuickFilter: domain.QuickFilterMine, CurrentUserDisplayName: "Bob"})
	assert.Len(t, mine, 2)

	urgent := svc.View(domain.LogFilter{QuickFilter: domain.QuickFilterUrgent})
	require.Len(t, urgent, 1)
	assert.Equal(t, "Fire drill", urgent[0].Message)
}
