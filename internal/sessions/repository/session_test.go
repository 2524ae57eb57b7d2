package repository

import (
	"context"
	"testing"
	"time"

	sessionserrors "stylo/internal/sessions/errors"
	"stylo/pkg/clock"
	"stylo/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.March, 2, 13, 0, 0, 0, time.UTC)

func slotFor(staffID string, offset time.Duration) model.SlotRequest {
	start := base.Add(24 * time.Hour).Add(offset)
	return model.SlotRequest{
		BranchID:  "branch-1",
		ServiceID: "cut",
		StaffID:   staffID,
		Start:     start,
		End:       start.Add(time.Hour),
	}
}

func TestNextRevision_LeavesSessionUntouched(t *testing.T) {
	session := model.NewBookingSession("token-1", slotFor("staff-a", 0), base, 15*time.Minute)
	session.Version = 3
	session.Draft = &model.ClientDraft{FirstName: "Lucia"}

	next := nextRevision(session, session.Version)
	assert.Equal(t, int64(4), next.Version)
	assert.Equal(t, int64(3), session.Version)

	next.Draft.FirstName = "Rosa"
	assert.Equal(t, "Lucia", session.Draft.FirstName)
}

// A driver retry re-runs the confirm callback against the rolled back
// document; each run must see the version the caller read.
func TestConfirmCallback_RerunSeesReadVersion(t *testing.T) {
	now := base.Add(5 * time.Minute)
	stored := model.NewBookingSession("token-1", slotFor("staff-a", 0), base, 15*time.Minute)
	stored.Version = 3

	session := *stored
	require.NoError(t, session.AttachDraft(model.ClientDraft{FirstName: "Lucia"}, now.Add(5*time.Minute), now))
	require.NoError(t, session.MarkVerified(now))
	require.NoError(t, session.Confirm("appt-1", now))
	expected := session.Version

	for attempt := 0; attempt < 2; attempt++ {
		require.NoError(t, checkConfirmable(stored, expected, now), "attempt %d", attempt)
		next := nextRevision(&session, expected)
		assert.Equal(t, int64(4), next.Version)
	}
	assert.Equal(t, int64(3), session.Version)
}

func TestCheckConfirmable(t *testing.T) {
	stored := model.NewBookingSession("token-1", slotFor("staff-a", 0), base, 15*time.Minute)
	stored.Version = 2

	assert.NoError(t, checkConfirmable(stored, 2, base))
	assert.ErrorIs(t, checkConfirmable(stored, 1, base), sessionserrors.ErrVersionConflict)
	assert.ErrorIs(t, checkConfirmable(stored, 2, base.Add(15*time.Minute)), sessionserrors.ErrHoldReleased)

	require.NoError(t, stored.Expire(base.Add(15*time.Minute)))
	assert.ErrorIs(t, checkConfirmable(stored, 2, base), sessionserrors.ErrHoldReleased)
}

func TestMemoryStart_ReturnsReleasedHolds(t *testing.T) {
	clk := clock.NewFake(base)
	repo := NewMemorySessionRepository(clk)
	ctx := context.Background()

	first := model.NewBookingSession("token-1", slotFor("staff-a", 0), base, 15*time.Minute)
	released, err := repo.Start(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, released)

	other := model.NewBookingSession("token-2", slotFor("staff-b", 0), base, 15*time.Minute)
	_, err = repo.Start(ctx, other)
	require.NoError(t, err)

	later := base.Add(16 * time.Minute)
	second := model.NewBookingSession("token-3", slotFor("staff-a", 0), later, 15*time.Minute)
	released, err = repo.Start(ctx, second)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, "token-1", released[0].Token)
	assert.Equal(t, model.StateExpired, released[0].State)
	assert.False(t, released[0].HoldsSlot)

	stored, err := repo.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateExpired, stored.State)
	assert.Equal(t, first.Version+1, stored.Version)

	stale, err := repo.ExpireStale(ctx, later)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "token-2", stale[0].Token)
}
