// Package store is the persistence boundary for slots, bookings and
// accounts. Only the engine writes slot and booking state through it.
package store

import (
	"context"
	"errors"
	"time"

	"parking_manager/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type SlotStore interface {
	// List returns every slot ordered by slot number.
	List(ctx context.Context) ([]model.Slot, error)
	Get(ctx context.Context, id uint) (*model.Slot, error)
	// GetForUpdate loads the slot and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*model.Slot, error)
	GetByNumber(ctx context.Context, number int) (*model.Slot, error)
	Create(ctx context.Context, slot *model.Slot) error
	// UpdateState persists Status and BookedBy.
	UpdateState(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	// Get returns the booking with its user and slot attached when they
	// still exist.
	Get(ctx context.Context, id uint) (*model.Booking, error)
	GetForUpdate(ctx context.Context, id uint) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id uint, status model.BookingStatus) error
	// ListByUser returns the user's bookings newest first with slots attached.
	ListByUser(ctx context.Context, userID uint) ([]model.Booking, error)
	// List returns bookings matching f newest first with users and slots attached.
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	// ListExpired returns booked bookings whose booking date is before now.
	ListExpired(ctx context.Context, now time.Time) ([]model.Booking, error)
	// ActiveForSlot returns the booked booking referencing slotID, or ErrNotFound.
	ActiveForSlot(ctx context.Context, slotID uint) (*model.Booking, error)
	CountByStatus(ctx context.Context, f model.BookingFilter) (model.BookingStats, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uint) (*model.User, error)
	// GetForUpdate loads the user and locks the row until the surrounding
	// transaction ends, so deletion and new bookings for the account
	// serialise.
	GetForUpdate(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
}

type AdminStore interface {
	Create(ctx context.Context, admin *model.Admin) error
	Get(ctx context.Context, id uint) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Save(ctx context.Context, admin *model.Admin) error
	Count(ctx context.Context) (int64, error)
}

type Store interface {
	Slots() SlotStore
	Bookings() BookingStore
	Users() UserStore
	Admins() AdminStore
	// Transaction runs fn against a transactional view of the store. All
	// writes made through tx commit together or not at all.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
