package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_manager/apperror"
	"parking_manager/model"
	"parking_manager/store"
)

var (
	today     = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday = "2026-05-09"
	tomorrow  = "2026-05-11"

	userA = model.Caller{ID: 1, Role: "user"}
	userB = model.Caller{ID: 2, Role: "user"}
	admin = model.Caller{ID: 99, Role: "admin"}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.SlotEvent
}

func (n *recordingNotifier) Publish(_ context.Context, ev model.SlotEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func newTestEngine(t *testing.T, st store.Store) (*Engine, *logtest.Hook, *recordingNotifier) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	n := &recordingNotifier{}
	return New(st, log, WithNotifier(n), WithClock(func() time.Time { return today })), hook, n
}

func addSlots(t *testing.T, e *Engine, numbers ...int) map[int]uint {
	t.Helper()
	ids := make(map[int]uint, len(numbers))
	for _, n := range numbers {
		s, err := e.AddSlot(context.Background(), n, "")
		require.NoError(t, err)
		ids[n] = s.ID
	}
	return ids
}

var (
	driversMu sync.Mutex
	driverSeq int
)

// ensureUser creates accounts until one with the given id exists. Ids are
// handed out in order, so tests can refer to users by number.
func ensureUser(st store.Store, id uint) error {
	driversMu.Lock()
	defer driversMu.Unlock()
	ctx := context.Background()
	for {
		_, err := st.Users().Get(ctx, id)
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		driverSeq++
		u := &model.User{Name: "driver", Email: fmt.Sprintf("driver%d@example.com", driverSeq)}
		if err := st.Users().Create(ctx, u); err != nil {
			return err
		}
		if u.ID > id {
			return store.ErrNotFound
		}
	}
}

func book(e *Engine, user model.Caller, slotID uint, date string) (*model.Booking, error) {
	if err := ensureUser(e.store, user.ID); err != nil {
		return nil, err
	}
	return e.CreateBooking(context.Background(), user.ID, model.CreateBookingInput{
		SlotId:        slotID,
		VehicleNumber: " MH 12 AB 1234 ",
		BookingDate:   date,
		BookingTime:   "10:00",
	})
}

// assertConsistent checks the cross-record invariants over the whole store.
func assertConsistent(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	slots, err := st.Slots().List(ctx)
	require.NoError(t, err)
	byID := map[uint]model.Slot{}
	for _, s := range slots {
		if s.BookedBy != nil {
			assert.Equal(t, model.SlotOccupied, s.Status, "slot %d has an occupant but is %s", s.SlotNumber, s.Status)
		}
		byID[s.ID] = s
	}

	bookings, err := st.Bookings().List(ctx, model.BookingFilter{})
	require.NoError(t, err)
	active := map[uint]int{}
	for _, b := range bookings {
		if b.Status != model.BookingBooked {
			continue
		}
		active[b.SlotId]++
		s, ok := byID[b.SlotId]
		if assert.True(t, ok, "booking %d references a missing slot", b.ID) {
			assert.True(t, s.HeldBy(b.UserId), "booking %d is booked but slot %d is not held by its user", b.ID, s.SlotNumber)
		}
	}
	for slotID, n := range active {
		assert.LessOrEqual(t, n, 1, "slot %d has %d active bookings", slotID, n)
	}
}

func TestCreateBooking(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, n := newTestEngine(t, st)
	ids := addSlots(t, e, 3)

	b, err := book(e, userA, ids[3], tomorrow)
	require.NoError(t, err)
	assert.Equal(t, model.BookingBooked, b.Status)
	assert.Equal(t, "MH 12 AB 1234", b.VehicleNumber)
	assert.Equal(t, "mh-12-ab-1234", b.VehicleKey)
	assert.Regexp(t, `^BK-[0-9A-F]{12}$`, b.Code)
	require.NotNil(t, b.Slot)
	assert.True(t, b.Slot.HeldBy(userA.ID))

	slot, err := st.Slots().Get(context.Background(), ids[3])
	require.NoError(t, err)
	assert.True(t, slot.HeldBy(userA.ID))
	assert.Equal(t, 2, n.count())
	assertConsistent(t, st)
}

func TestCreateBookingValidation(t *testing.T) {
	e, _, _ := newTestEngine(t, store.NewMemoryStore())
	ids := addSlots(t, e, 1)
	ctx := context.Background()
	require.NoError(t, ensureUser(e.store, userA.ID))

	cases := []struct {
		name string
		in   model.CreateBookingInput
		kind apperror.Kind
	}{
		{"blank vehicle", model.CreateBookingInput{SlotId: ids[1], VehicleNumber: "  ", BookingDate: tomorrow, BookingTime: "9"}, apperror.KindInvalidArgument},
		{"missing time", model.CreateBookingInput{SlotId: ids[1], VehicleNumber: "X", BookingDate: tomorrow}, apperror.KindInvalidArgument},
		{"bad date", model.CreateBookingInput{SlotId: ids[1], VehicleNumber: "X", BookingDate: "soon", BookingTime: "9"}, apperror.KindInvalidArgument},
		{"missing slot", model.CreateBookingInput{SlotId: 404, VehicleNumber: "X", BookingDate: tomorrow, BookingTime: "9"}, apperror.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.CreateBooking(ctx, userA.ID, tc.in)
			assert.Equal(t, tc.kind, apperror.KindOf(err))
		})
	}
}

func TestCreateBookingOnOccupiedSlotConflicts(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 5)

	_, err := book(e, userA, ids[5], tomorrow)
	require.NoError(t, err)

	_, err = book(e, userB, ids[5], tomorrow)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	all, err := st.Bookings().List(context.Background(), model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assertConsistent(t, st)
}

func TestCreateBookingRace(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 1)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			_, err := book(e, model.Caller{ID: user}, ids[1], tomorrow)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperror.Is(err, apperror.KindConflict):
				conflicts++
			}
		}(uint(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
	assertConsistent(t, st)
}

func TestCancelBookingIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 1)
	ctx := context.Background()

	b, err := book(e, userA, ids[1], tomorrow)
	require.NoError(t, err)

	got, err := e.CancelBooking(ctx, userA, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	// B claims the freed slot; a second cancel by A must not release it.
	newer, err := book(e, userB, ids[1], tomorrow)
	require.NoError(t, err)

	got, err = e.CancelBooking(ctx, userA, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	slot, err := st.Slots().Get(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, slot.HeldBy(userB.ID))

	_, err = e.CancelBooking(ctx, userB, newer.ID)
	require.NoError(t, err)
	slot, err = st.Slots().Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assert.Nil(t, slot.BookedBy)
	assertConsistent(t, st)
}

func TestCancelBookingForbiddenLeavesStateUnchanged(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 1)
	ctx := context.Background()

	b, err := book(e, userA, ids[1], tomorrow)
	require.NoError(t, err)

	_, err = e.CancelBooking(ctx, userB, b.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	stored, err := st.Bookings().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingBooked, stored.Status)
	slot, err := st.Slots().Get(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, slot.HeldBy(userA.ID))

	_, err = e.CancelBooking(ctx, userA, 12345)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assertConsistent(t, st)
}

func TestAdminCanCancelAnyBooking(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 1)

	b, err := book(e, userA, ids[1], tomorrow)
	require.NoError(t, err)
	got, err := e.CancelBooking(context.Background(), admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assertConsistent(t, st)
}

func TestAdminSetBookingStatus(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 1, 2)
	ctx := context.Background()

	b1, err := book(e, userA, ids[1], tomorrow)
	require.NoError(t, err)
	b2, err := book(e, userB, ids[2], tomorrow)
	require.NoError(t, err)

	_, err = e.AdminSetBookingStatus(ctx, b1.ID, "booked")
	assert.True(t, apperror.Is(err, apperror.KindInvalidArgument))
	_, err = e.AdminSetBookingStatus(ctx, b1.ID, "parked")
	assert.True(t, apperror.Is(err, apperror.KindInvalidArgument))
	_, err = e.AdminSetBookingStatus(ctx, 999, "completed")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	got, err := e.AdminSetBookingStatus(ctx, b1.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, got.Status)

	// Same status again is a no-op, a different terminal status conflicts.
	_, err = e.AdminSetBookingStatus(ctx, b1.ID, "completed")
	require.NoError(t, err)
	_, err = e.AdminSetBookingStatus(ctx, b1.ID, "cancelled")
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = e.AdminSetBookingStatus(ctx, b2.ID, "cancelled")
	require.NoError(t, err)
	_, err = e.CancelBooking(ctx, admin, b1.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	slots, err := st.Slots().List(ctx)
	require.NoError(t, err)
	for _, s := range slots {
		assert.Equal(t, model.SlotAvailable, s.Status)
	}
	assertConsistent(t, st)
}

func TestSweepCompletesExpiredBookings(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 3, 4)
	ctx := context.Background()

	past, err := book(e, userA, ids[3], yesterday)
	require.NoError(t, err)
	future, err := book(e, userB, ids[4], tomorrow)
	require.NoError(t, err)

	slot, err := st.Slots().Get(ctx, ids[3])
	require.NoError(t, err)
	assert.True(t, slot.HeldBy(userA.ID))

	res, err := e.SweepExpiredBookings(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, model.SweepResult{Scanned: 1, Completed: 1}, res)

	got, err := st.Bookings().Get(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, got.Status)
	slot, err = st.Slots().Get(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assert.Nil(t, slot.BookedBy)

	got, err = st.Bookings().Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingBooked, got.Status)

	// A second pass finds nothing and changes nothing.
	before, err := st.Bookings().List(ctx, model.BookingFilter{})
	require.NoError(t, err)
	res, err = e.SweepExpiredBookings(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, model.SweepResult{}, res)
	after, err := st.Bookings().List(ctx, model.BookingFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	expired, err := st.Bookings().ListExpired(ctx, today)
	require.NoError(t, err)
	assert.Empty(t, expired)
	assertConsistent(t, st)
}

type faultyStore struct {
	*store.MemoryStore
	failBooking uint
}

func (f *faultyStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.MemoryStore.Transaction(ctx, func(tx store.Store) error {
		return fn(faultyTx{Store: tx, failBooking: f.failBooking})
	})
}

type faultyTx struct {
	store.Store
	failBooking uint
}

func (t faultyTx) Bookings() store.BookingStore {
	return faultyBookings{BookingStore: t.Store.Bookings(), failBooking: t.failBooking}
}

type faultyBookings struct {
	store.BookingStore
	failBooking uint
}

func (b faultyBookings) UpdateStatus(ctx context.Context, id uint, status model.BookingStatus) error {
	if id == b.failBooking {
		return errors.New("write failed")
	}
	return b.BookingStore.UpdateStatus(ctx, id, status)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	mem := store.NewMemoryStore()
	seed, _, _ := newTestEngine(t, mem)
	ids := addSlots(t, seed, 1, 2, 3)

	var bookings []*model.Booking
	for i, n := range []int{1, 2, 3} {
		b, err := book(seed, model.Caller{ID: uint(i + 1)}, ids[n], yesterday)
		require.NoError(t, err)
		bookings = append(bookings, b)
	}

	st := &faultyStore{MemoryStore: mem, failBooking: bookings[1].ID}
	e, hook, _ := newTestEngine(t, st)

	res, err := e.SweepExpiredBookings(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, model.SweepResult{Scanned: 3, Completed: 2, Failed: 1}, res)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["booking_id"] == bookings[1].ID {
			logged = true
		}
	}
	assert.True(t, logged, "failed booking should be logged")

	// The failed booking rolled back as a unit and is still consistent.
	failed, err := mem.Bookings().Get(context.Background(), bookings[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingBooked, failed.Status)
	assertConsistent(t, mem)
}

func TestGetAllBookingsRequiresAdmin(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 1, 2)
	ctx := context.Background()

	_, err := e.GetAllBookings(ctx, userA, model.BookingFilter{})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	first, err := book(e, userA, ids[1], yesterday)
	require.NoError(t, err)
	second, err := book(e, userB, ids[2], tomorrow)
	require.NoError(t, err)

	all, err := e.GetAllBookings(ctx, admin, model.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	// Read-time sweep completed the past booking.
	assert.Equal(t, first.ID, all[1].ID)
	assert.Equal(t, model.BookingCompleted, all[1].Status)

	mine, err := e.GetBookingsForUser(ctx, userB.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID)

	none, err := e.GetBookingsForUser(ctx, 77)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	assertConsistent(t, st)
}

func TestGetBooking(t *testing.T) {
	e, _, _ := newTestEngine(t, store.NewMemoryStore())
	ids := addSlots(t, e, 1)
	ctx := context.Background()

	b, err := book(e, userA, ids[1], tomorrow)
	require.NoError(t, err)

	_, err = e.GetBooking(ctx, userA, b.ID)
	require.NoError(t, err)
	_, err = e.GetBooking(ctx, admin, b.ID)
	require.NoError(t, err)
	_, err = e.GetBooking(ctx, userB, b.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	_, err = e.GetBooking(ctx, userA, 500)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestScenarioSlotThreeExpires(t *testing.T) {
	st := store.NewMemoryStore()
	e, _, _ := newTestEngine(t, st)
	ids := addSlots(t, e, 3)
	ctx := context.Background()

	b, err := book(e, userA, ids[3], yesterday)
	require.NoError(t, err)
	slot, err := st.Slots().GetByNumber(ctx, 3)
	require.NoError(t, err)
	assert.True(t, slot.HeldBy(userA.ID))

	_, err = e.SweepExpiredBookings(ctx, today)
	require.NoError(t, err)

	got, err := st.Bookings().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, got.Status)
	slot, err = st.Slots().GetByNumber(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assert.Nil(t, slot.BookedBy)
}
