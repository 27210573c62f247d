package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_manager/model"
)

func seedSlots(t *testing.T, s Store, numbers ...int) []model.Slot {
	t.Helper()
	out := make([]model.Slot, 0, len(numbers))
	for _, n := range numbers {
		slot := model.Slot{SlotNumber: n}
		require.NoError(t, s.Slots().Create(context.Background(), &slot))
		out = append(out, slot)
	}
	return out
}

func TestMemorySlots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seeded := seedSlots(t, s, 3, 1, 2)

	slots, err := s.Slots().List(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{slots[0].SlotNumber, slots[1].SlotNumber, slots[2].SlotNumber})
	assert.Equal(t, model.SlotAvailable, slots[0].Status)

	dup := model.Slot{SlotNumber: 2}
	assert.ErrorIs(t, s.Slots().Create(ctx, &dup), ErrDuplicate)

	got, err := s.Slots().GetByNumber(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, seeded[0].ID, got.ID)

	_, err = s.Slots().Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Slots().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, s.Slots().Delete(ctx, got.ID))
	assert.ErrorIs(t, s.Slots().Delete(ctx, got.ID), ErrNotFound)
}

func TestMemorySlotCopiesOccupant(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	slot := seedSlots(t, s, 1)[0]

	require.NoError(t, slot.Occupy(7))
	require.NoError(t, s.Slots().UpdateState(ctx, &slot))
	*slot.BookedBy = 8

	got, err := s.Slots().Get(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BookedBy)
	assert.EqualValues(t, 7, *got.BookedBy)
}

func TestMemoryTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	slot := seedSlots(t, s, 1)[0]
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx Store) error {
		locked, err := tx.Slots().GetForUpdate(ctx, slot.ID)
		require.NoError(t, err)
		require.NoError(t, locked.Occupy(1))
		require.NoError(t, tx.Slots().UpdateState(ctx, locked))
		require.NoError(t, tx.Bookings().Create(ctx, &model.Booking{Code: "BK-1", UserId: 1, SlotId: slot.ID, Status: model.BookingBooked}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Slots().Get(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, got.Status)
	assert.Nil(t, got.BookedBy)

	all, err := s.Bookings().List(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryTransactionCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	slot := seedSlots(t, s, 1)[0]

	err := s.Transaction(ctx, func(tx Store) error {
		locked, err := tx.Slots().GetForUpdate(ctx, slot.ID)
		if err != nil {
			return err
		}
		if err := locked.Occupy(1); err != nil {
			return err
		}
		return tx.Slots().UpdateState(ctx, locked)
	})
	require.NoError(t, err)

	got, err := s.Slots().Get(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, got.HeldBy(1))
}

func TestMemoryBookings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	slot := seedSlots(t, s, 1)[0]
	user := model.User{Name: "Ann", Email: "ann@example.com", Password: "x"}
	require.NoError(t, s.Users().Create(ctx, &user))

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	first := model.Booking{Code: "BK-1", UserId: user.ID, SlotId: slot.ID, VehicleNumber: "MH 12", VehicleKey: model.VehicleKey("MH 12"), BookingDate: day, Status: model.BookingBooked}
	second := model.Booking{Code: "BK-2", UserId: user.ID, SlotId: slot.ID, VehicleNumber: "KA 01", VehicleKey: model.VehicleKey("KA 01"), BookingDate: day.AddDate(0, 0, 5), Status: model.BookingCancelled}
	require.NoError(t, s.Bookings().Create(ctx, &first))
	require.NoError(t, s.Bookings().Create(ctx, &second))
	assert.ErrorIs(t, s.Bookings().Create(ctx, &model.Booking{Code: "BK-1"}), ErrDuplicate)

	mine, err := s.Bookings().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	require.NotNil(t, mine[0].Slot)
	assert.Equal(t, 1, mine[0].Slot.SlotNumber)

	got, err := s.Bookings().Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Ann", got.User.Name)

	active, err := s.Bookings().ActiveForSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	expired, err := s.Bookings().ListExpired(ctx, day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, first.ID, expired[0].ID)

	filtered, err := s.Bookings().List(ctx, model.BookingFilter{Vehicle: "ka"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)

	require.NoError(t, s.Bookings().UpdateStatus(ctx, first.ID, model.BookingCompleted))
	_, err = s.Bookings().ActiveForSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := s.Bookings().CountByStatus(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStats{Completed: 1, Cancelled: 1}, stats)
}

func TestMemoryUsersUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := model.User{Name: "A", Email: "a@example.com"}
	b := model.User{Name: "B", Email: "b@example.com"}
	require.NoError(t, s.Users().Create(ctx, &a))
	require.NoError(t, s.Users().Create(ctx, &b))
	assert.ErrorIs(t, s.Users().Create(ctx, &model.User{Email: "A@example.com"}), ErrDuplicate)

	b.Email = "a@example.com"
	assert.ErrorIs(t, s.Users().Save(ctx, &b), ErrDuplicate)

	got, err := s.Users().GetByEmail(ctx, "A@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, s.Users().Delete(ctx, a.ID))
	n, err := s.Users().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	_, err := s.Slots().List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	err = s.Transaction(ctx, func(Store) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
