package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"parking_manager/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in process. Transactions run one at a time
// against a copy of the state that replaces the live state on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	slots    map[uint]model.Slot
	bookings map[uint]model.Booking
	users    map[uint]model.User
	admins   map[uint]model.Admin

	nextSlot, nextBooking, nextUser, nextAdmin uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			slots:    map[uint]model.Slot{},
			bookings: map[uint]model.Booking{},
			users:    map[uint]model.User{},
			admins:   map[uint]model.Admin{},
		},
		now: time.Now,
	}
}

func (st *memState) clone() *memState {
	c := *st
	c.slots = make(map[uint]model.Slot, len(st.slots))
	for k, v := range st.slots {
		c.slots[k] = v
	}
	c.bookings = make(map[uint]model.Booking, len(st.bookings))
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	c.users = make(map[uint]model.User, len(st.users))
	for k, v := range st.users {
		c.users[k] = v
	}
	c.admins = make(map[uint]model.Admin, len(st.admins))
	for k, v := range st.admins {
		c.admins[k] = v
	}
	return &c
}

// memView is either the live store or a transaction's private copy.
type memView struct {
	s  *MemoryStore
	tx *memState
}

func (v memView) do(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.state)
}

func (s *MemoryStore) view() memView { return memView{s: s} }

func (s *MemoryStore) Slots() SlotStore       { return memSlots{s.view()} }
func (s *MemoryStore) Bookings() BookingStore { return memBookings{s.view()} }
func (s *MemoryStore) Users() UserStore       { return memUsers{s.view()} }
func (s *MemoryStore) Admins() AdminStore     { return memAdmins{s.view()} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(memTx{memView{s: s, tx: work}}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct{ v memView }

func (t memTx) Slots() SlotStore       { return memSlots{t.v} }
func (t memTx) Bookings() BookingStore { return memBookings{t.v} }
func (t memTx) Users() UserStore       { return memUsers{t.v} }
func (t memTx) Admins() AdminStore     { return memAdmins{t.v} }
func (t memTx) Close() error           { return nil }

// Transaction inside a transaction joins the outer one.
func (t memTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

func copySlot(s model.Slot) model.Slot {
	if s.BookedBy != nil {
		id := *s.BookedBy
		s.BookedBy = &id
	}
	return s
}

type memSlots struct{ v memView }

func (r memSlots) List(ctx context.Context) ([]model.Slot, error) {
	var out []model.Slot
	err := r.v.do(ctx, func(st *memState) error {
		for _, s := range st.slots {
			out = append(out, copySlot(s))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SlotNumber < out[j].SlotNumber })
	return out, err
}

func (r memSlots) Get(ctx context.Context, id uint) (*model.Slot, error) {
	var out *model.Slot
	err := r.v.do(ctx, func(st *memState) error {
		s, ok := st.slots[id]
		if !ok {
			return ErrNotFound
		}
		c := copySlot(s)
		out = &c
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialised.
func (r memSlots) GetForUpdate(ctx context.Context, id uint) (*model.Slot, error) {
	return r.Get(ctx, id)
}

func (r memSlots) GetByNumber(ctx context.Context, number int) (*model.Slot, error) {
	var out *model.Slot
	err := r.v.do(ctx, func(st *memState) error {
		for _, s := range st.slots {
			if s.SlotNumber == number {
				c := copySlot(s)
				out = &c
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memSlots) Create(ctx context.Context, slot *model.Slot) error {
	return r.v.do(ctx, func(st *memState) error {
		for _, s := range st.slots {
			if s.SlotNumber == slot.SlotNumber {
				return ErrDuplicate
			}
		}
		st.nextSlot++
		now := r.v.s.now()
		slot.ID = st.nextSlot
		slot.CreatedAt, slot.UpdatedAt = now, now
		if slot.Status == "" {
			slot.Status = model.SlotAvailable
		}
		st.slots[slot.ID] = copySlot(*slot)
		return nil
	})
}

func (r memSlots) UpdateState(ctx context.Context, slot *model.Slot) error {
	return r.v.do(ctx, func(st *memState) error {
		cur, ok := st.slots[slot.ID]
		if !ok {
			return ErrNotFound
		}
		cur.Status = slot.Status
		cur.BookedBy = slot.BookedBy
		cur.UpdatedAt = r.v.s.now()
		st.slots[slot.ID] = copySlot(cur)
		return nil
	})
}

func (r memSlots) Delete(ctx context.Context, id uint) error {
	return r.v.do(ctx, func(st *memState) error {
		if _, ok := st.slots[id]; !ok {
			return ErrNotFound
		}
		delete(st.slots, id)
		return nil
	})
}

func (r memSlots) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.v.do(ctx, func(st *memState) error {
		n = int64(len(st.slots))
		return nil
	})
	return n, err
}

type memBookings struct{ v memView }

// attach returns a detached copy of b with its user and slot filled in.
func attach(st *memState, b model.Booking, withUser bool) model.Booking {
	b.User, b.Slot = nil, nil
	if withUser {
		if u, ok := st.users[b.UserId]; ok {
			b.User = &u
		}
	}
	if s, ok := st.slots[b.SlotId]; ok {
		c := copySlot(s)
		b.Slot = &c
	}
	return b
}

func sortNewestFirst(bookings []model.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID > bookings[j].ID
	})
}

func (r memBookings) Create(ctx context.Context, booking *model.Booking) error {
	return r.v.do(ctx, func(st *memState) error {
		for _, b := range st.bookings {
			if booking.Code != "" && b.Code == booking.Code {
				return ErrDuplicate
			}
		}
		st.nextBooking++
		now := r.v.s.now()
		booking.ID = st.nextBooking
		booking.CreatedAt, booking.UpdatedAt = now, now
		stored := *booking
		stored.User, stored.Slot = nil, nil
		st.bookings[booking.ID] = stored
		return nil
	})
}

func (r memBookings) Get(ctx context.Context, id uint) (*model.Booking, error) {
	var out *model.Booking
	err := r.v.do(ctx, func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return ErrNotFound
		}
		c := attach(st, b, true)
		out = &c
		return nil
	})
	return out, err
}

func (r memBookings) GetForUpdate(ctx context.Context, id uint) (*model.Booking, error) {
	var out *model.Booking
	err := r.v.do(ctx, func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return ErrNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r memBookings) UpdateStatus(ctx context.Context, id uint, status model.BookingStatus) error {
	return r.v.do(ctx, func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return ErrNotFound
		}
		b.Status = status
		b.UpdatedAt = r.v.s.now()
		st.bookings[id] = b
		return nil
	})
}

func (r memBookings) ListByUser(ctx context.Context, userID uint) ([]model.Booking, error) {
	var out []model.Booking
	err := r.v.do(ctx, func(st *memState) error {
		for _, b := range st.bookings {
			if b.UserId == userID {
				out = append(out, attach(st, b, false))
			}
		}
		return nil
	})
	sortNewestFirst(out)
	return out, err
}

func (r memBookings) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var out []model.Booking
	err := r.v.do(ctx, func(st *memState) error {
		for _, b := range st.bookings {
			if f.Matches(&b) {
				out = append(out, attach(st, b, true))
			}
		}
		return nil
	})
	sortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}

func (r memBookings) ListExpired(ctx context.Context, now time.Time) ([]model.Booking, error) {
	var out []model.Booking
	err := r.v.do(ctx, func(st *memState) error {
		for _, b := range st.bookings {
			if b.Status == model.BookingBooked && b.BookingDate.Before(now) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate) {
			return out[i].BookingDate.Before(out[j].BookingDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r memBookings) ActiveForSlot(ctx context.Context, slotID uint) (*model.Booking, error) {
	var out *model.Booking
	err := r.v.do(ctx, func(st *memState) error {
		for _, b := range st.bookings {
			if b.SlotId == slotID && b.Status == model.BookingBooked {
				out = &b
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memBookings) CountByStatus(ctx context.Context, f model.BookingFilter) (model.BookingStats, error) {
	var stats model.BookingStats
	err := r.v.do(ctx, func(st *memState) error {
		for _, b := range st.bookings {
			if f.Matches(&b) {
				stats.Add(b.Status, 1)
			}
		}
		return nil
	})
	return stats, err
}

type memUsers struct{ v memView }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	return r.v.do(ctx, func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return ErrDuplicate
			}
		}
		st.nextUser++
		now := r.v.s.now()
		user.ID = st.nextUser
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) Get(ctx context.Context, id uint) (*model.User, error) {
	var out *model.User
	err := r.v.do(ctx, func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

// GetForUpdate is Get: transactions already run one at a time.
func (r memUsers) GetForUpdate(ctx context.Context, id uint) (*model.User, error) {
	return r.Get(ctx, id)
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.v.do(ctx, func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memUsers) Save(ctx context.Context, user *model.User) error {
	return r.v.do(ctx, func(st *memState) error {
		if _, ok := st.users[user.ID]; !ok {
			return ErrNotFound
		}
		for id, u := range st.users {
			if id != user.ID && strings.EqualFold(u.Email, user.Email) {
				return ErrDuplicate
			}
		}
		user.UpdatedAt = r.v.s.now()
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) Delete(ctx context.Context, id uint) error {
	return r.v.do(ctx, func(st *memState) error {
		if _, ok := st.users[id]; !ok {
			return ErrNotFound
		}
		delete(st.users, id)
		return nil
	})
}

func (r memUsers) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := r.v.do(ctx, func(st *memState) error {
		for _, u := range st.users {
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memUsers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.v.do(ctx, func(st *memState) error {
		n = int64(len(st.users))
		return nil
	})
	return n, err
}

type memAdmins struct{ v memView }

func (r memAdmins) Create(ctx context.Context, admin *model.Admin) error {
	return r.v.do(ctx, func(st *memState) error {
		for _, a := range st.admins {
			if strings.EqualFold(a.Email, admin.Email) {
				return ErrDuplicate
			}
		}
		st.nextAdmin++
		now := r.v.s.now()
		admin.ID = st.nextAdmin
		admin.CreatedAt, admin.UpdatedAt = now, now
		st.admins[admin.ID] = *admin
		return nil
	})
}

func (r memAdmins) Get(ctx context.Context, id uint) (*model.Admin, error) {
	var out *model.Admin
	err := r.v.do(ctx, func(st *memState) error {
		a, ok := st.admins[id]
		if !ok {
			return ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r memAdmins) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var out *model.Admin
	err := r.v.do(ctx, func(st *memState) error {
		for _, a := range st.admins {
			if strings.EqualFold(a.Email, email) {
				out = &a
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memAdmins) Save(ctx context.Context, admin *model.Admin) error {
	return r.v.do(ctx, func(st *memState) error {
		if _, ok := st.admins[admin.ID]; !ok {
			return ErrNotFound
		}
		for id, a := range st.admins {
			if id != admin.ID && strings.EqualFold(a.Email, admin.Email) {
				return ErrDuplicate
			}
		}
		admin.UpdatedAt = r.v.s.now()
		st.admins[admin.ID] = *admin
		return nil
	})
}

func (r memAdmins) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.v.do(ctx, func(st *memState) error {
		n = int64(len(st.admins))
		return nil
	})
	return n, err
}
