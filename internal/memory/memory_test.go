package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/afif-main/event-campus/internal/model"
	"github.com/afif-main/event-campus/internal/store"
)

func testEvent(id string) model.Event {
	capacity := 2
	return model.Event{ID: id, Title: "Event", Capacity: &capacity, OrganizerID: "org"}
}

func reg(id, user, event string, status model.Status, at time.Time) *model.Registration {
	return &model.Registration{ID: id, UserID: user, EventID: event, Status: status, RegistrationDate: at}
}

func TestWithEventLockUnknownEvent(t *testing.T) {
	st := New()

	err := st.WithEventLock(context.Background(), "missing", func(tx store.Tx, ev *model.Event) error {
		t.Fatal("callback must not run for an unknown event")
		return nil
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateRejectsDuplicateLiveRow(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()
	now := time.Now()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, ev *model.Event) error {
		require.NoError(t, tx.Create(ctx, reg("r1", "u1", "e1", model.StatusConfirmed, now)))

		// Same pair, still live: the unique constraint rejects it.
		err := tx.Create(ctx, reg("r2", "u1", "e1", model.StatusWaitlisted, now))
		require.ErrorIs(t, err, store.ErrConcurrencyConflict)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateAllowsNewRowAfterCancellation(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()
	now := time.Now()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, ev *model.Event) error {
		require.NoError(t, tx.Create(ctx, reg("r1", "u1", "e1", model.StatusCancelled, now)))
		require.NoError(t, tx.Create(ctx, reg("r2", "u1", "e1", model.StatusConfirmed, now)))
		return nil
	})
	require.NoError(t, err)
}

func TestFindByUserAndEventPrefersLiveRow(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()
	now := time.Now()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, ev *model.Event) error {
		require.NoError(t, tx.Create(ctx, reg("r1", "u1", "e1", model.StatusCancelled, now)))
		require.NoError(t, tx.Create(ctx, reg("r2", "u1", "e1", model.StatusConfirmed, now.Add(time.Second))))

		found, err := tx.FindByUserAndEvent(ctx, "u1", "e1")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Equal(t, "r2", found.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestEarliestWaitlistedOrdering(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()
	base := time.Now()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, ev *model.Event) error {
		require.NoError(t, tx.Create(ctx, reg("r1", "u1", "e1", model.StatusWaitlisted, base.Add(2*time.Second))))
		require.NoError(t, tx.Create(ctx, reg("r2", "u2", "e1", model.StatusWaitlisted, base.Add(time.Second))))
		require.NoError(t, tx.Create(ctx, reg("r3", "u3", "e1", model.StatusConfirmed, base)))

		earliest, err := tx.EarliestWaitlisted(ctx, "e1")
		require.NoError(t, err)
		require.NotNil(t, earliest)
		require.Equal(t, "r2", earliest.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestEarliestWaitlistedEmpty(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, ev *model.Event) error {
		earliest, err := tx.EarliestWaitlisted(ctx, "e1")
		require.NoError(t, err)
		require.Nil(t, earliest, "empty waitlist is not an error")
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateReactivationConflict(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()
	now := time.Now()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, ev *model.Event) error {
		require.NoError(t, tx.Create(ctx, reg("r1", "u1", "e1", model.StatusCancelled, now)))
		require.NoError(t, tx.Create(ctx, reg("r2", "u1", "e1", model.StatusConfirmed, now)))

		// Reactivating the cancelled row while another live row exists
		// would break uniqueness.
		err := tx.Update(ctx, reg("r1", "u1", "e1", model.StatusConfirmed, now))
		require.ErrorIs(t, err, store.ErrConcurrencyConflict)
		return nil
	})
	require.NoError(t, err)
}

func TestListOrdering(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	st.AddEvent(testEvent("e2"))
	ctx := context.Background()
	base := time.Now()

	for _, ev := range []string{"e1", "e2"} {
		ev := ev
		err := st.WithEventLock(ctx, ev, func(tx store.Tx, _ *model.Event) error {
			return tx.Create(ctx, reg("r-"+ev, "u1", ev, model.StatusConfirmed, base))
		})
		require.NoError(t, err)
		base = base.Add(time.Minute)
	}

	byUser, err := st.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	require.Equal(t, "e2", byUser[0].EventID, "most recent first")

	byEvent, err := st.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
}

func TestFindRegistration(t *testing.T) {
	st := New()
	st.AddEvent(testEvent("e1"))
	ctx := context.Background()

	err := st.WithEventLock(ctx, "e1", func(tx store.Tx, _ *model.Event) error {
		return tx.Create(ctx, reg("r1", "u1", "e1", model.StatusConfirmed, time.Now()))
	})
	require.NoError(t, err)

	found, ev, err := st.FindRegistration(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "u1", found.UserID)
	require.Equal(t, "e1", ev.ID)

	_, _, err = st.FindRegistration(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
