package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parking_manager/apperror"
	"parking_manager/constants"
	"parking_manager/model"
	"parking_manager/store"
)

const (
	msgBookingNotFound = "Booking not found"
	msgSlotNotFound    = "Slot not found"
	msgSlotOccupied    = "Slot already booked"
	msgNotOwner        = "Not authorized to cancel this booking"
	msgInvalidStatus   = "Status must be cancelled or completed"
)

func newBookingCode() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CreateBooking claims the slot for userID and records the booking in the
// same transaction, with the user and slot rows locked for the duration. A
// user removed after their token was issued gets Unauthorized.
func (e *Engine) CreateBooking(ctx context.Context, userID uint, in model.CreateBookingInput) (*model.Booking, error) {
	vehicle := strings.TrimSpace(in.VehicleNumber)
	bookingTime := strings.TrimSpace(in.BookingTime)
	if userID == 0 || in.SlotId == 0 || vehicle == "" || bookingTime == "" || strings.TrimSpace(in.BookingDate) == "" {
		return nil, apperror.InvalidArgument(constants.ALL_FIELDS_REQUIRED)
	}
	date, err := model.ParseBookingDate(in.BookingDate)
	if err != nil {
		return nil, apperror.InvalidArgument("Invalid booking date")
	}

	booking := &model.Booking{
		Code:          newBookingCode(),
		UserId:        userID,
		SlotId:        in.SlotId,
		VehicleNumber: vehicle,
		VehicleKey:    model.VehicleKey(vehicle),
		BookingDate:   date,
		BookingTime:   bookingTime,
		Status:        model.BookingBooked,
	}

	var slot *model.Slot
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Users().GetForUpdate(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.Unauthorized(constants.USER_NOT_FOUND)
			}
			return storeErr(err, constants.USER_NOT_FOUND)
		}
		s, err := tx.Slots().GetForUpdate(ctx, in.SlotId)
		if err != nil {
			return storeErr(err, msgSlotNotFound)
		}
		if err := s.Occupy(userID); err != nil {
			return apperror.Conflict(msgSlotOccupied)
		}
		if err := tx.Bookings().Create(ctx, booking); err != nil {
			return storeErr(err, msgBookingNotFound)
		}
		if err := tx.Slots().UpdateState(ctx, s); err != nil {
			return storeErr(err, msgSlotNotFound)
		}
		slot = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Slot = slot
	e.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"slot_id":    slot.ID,
		"user_id":    userID,
	}).Info("booking created")
	e.publish(ctx, model.SlotUpdated, slot)
	return booking, nil
}

// CancelBooking cancels a booking on behalf of its owner or an admin.
// Cancelling an already cancelled booking returns it unchanged.
func (e *Engine) CancelBooking(ctx context.Context, caller model.Caller, bookingID uint) (*model.Booking, error) {
	return e.closeBooking(ctx, bookingID, model.BookingCancelled, func(b *model.Booking) error {
		if b.UserId != caller.ID && !caller.IsAdmin() {
			return apperror.Forbidden(msgNotOwner)
		}
		return nil
	})
}

// AdminSetBookingStatus moves a booking to cancelled or completed.
func (e *Engine) AdminSetBookingStatus(ctx context.Context, bookingID uint, status string) (*model.Booking, error) {
	to, err := model.ParseBookingStatus(strings.TrimSpace(status))
	if err != nil || !to.Terminal() {
		return nil, apperror.InvalidArgument(msgInvalidStatus)
	}
	return e.closeBooking(ctx, bookingID, to, nil)
}

// closeBooking moves a booked booking to a terminal status and frees its slot
// when the slot is still held for the booking's user. A slot claimed by
// someone else in the meantime is left alone.
func (e *Engine) closeBooking(ctx context.Context, bookingID uint, to model.BookingStatus, authorize func(*model.Booking) error) (*model.Booking, error) {
	var (
		booking  *model.Booking
		released *model.Slot
	)
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return storeErr(err, msgBookingNotFound)
		}
		if authorize != nil {
			if err := authorize(b); err != nil {
				return err
			}
		}
		booking = b
		if b.Status == to {
			return nil
		}
		if err := b.TransitionTo(to); err != nil {
			return apperror.Conflict(fmt.Sprintf("Booking is already %s", b.Status))
		}
		if err := tx.Bookings().UpdateStatus(ctx, b.ID, to); err != nil {
			return storeErr(err, msgBookingNotFound)
		}

		slot, err := tx.Slots().GetForUpdate(ctx, b.SlotId)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return storeErr(err, msgSlotNotFound)
		}
		if slot.HeldBy(b.UserId) {
			slot.Release()
			if err := tx.Slots().UpdateState(ctx, slot); err != nil {
				return storeErr(err, msgSlotNotFound)
			}
			released = slot
		}
		b.Slot = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"booking_id":    booking.ID,
		"status":        booking.Status,
		"slot_released": released != nil,
	}).Info("booking closed")
	e.publish(ctx, model.SlotUpdated, released)
	return booking, nil
}

// SweepExpiredBookings completes every booked booking dated before now and
// frees its slot. Each booking is handled in its own transaction; a failure
// is logged and counted and the sweep moves on.
func (e *Engine) SweepExpiredBookings(ctx context.Context, now time.Time) (model.SweepResult, error) {
	var result model.SweepResult

	expired, err := e.store.Bookings().ListExpired(ctx, now)
	if err != nil {
		return result, storeErr(err, msgBookingNotFound)
	}

	for _, b := range expired {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		done, slot, err := e.completeExpired(ctx, b.ID, now)
		if err != nil {
			result.Failed++
			e.log.WithError(err).WithFields(logrus.Fields{
				"booking_id": b.ID,
				"slot_id":    b.SlotId,
			}).Error("sweep: failed to complete booking")
			continue
		}
		if done {
			result.Completed++
			e.publish(ctx, model.SlotUpdated, slot)
		}
	}

	if result.Scanned > 0 {
		e.log.WithFields(logrus.Fields{
			"scanned":   result.Scanned,
			"completed": result.Completed,
			"failed":    result.Failed,
		}).Info("sweep finished")
	}
	return result, nil
}

func (e *Engine) completeExpired(ctx context.Context, bookingID uint, now time.Time) (bool, *model.Slot, error) {
	var (
		done bool
		slot *model.Slot
	)
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		// Closed by someone else since the scan.
		if b.Status != model.BookingBooked || !b.BookingDate.Before(now) {
			return nil
		}
		if err := b.TransitionTo(model.BookingCompleted); err != nil {
			return err
		}
		if err := tx.Bookings().UpdateStatus(ctx, b.ID, b.Status); err != nil {
			return err
		}

		s, err := tx.Slots().GetForUpdate(ctx, b.SlotId)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		default:
			s.Release()
			if err := tx.Slots().UpdateState(ctx, s); err != nil {
				return err
			}
			slot = s
		}
		done = true
		return nil
	})
	return done, slot, err
}

// reconcile runs the sweep ahead of admin reads. A failing sweep does not
// fail the read.
func (e *Engine) reconcile(ctx context.Context) {
	if _, err := e.SweepExpiredBookings(ctx, e.now()); err != nil {
		e.log.WithError(err).Warn("read-time sweep failed")
	}
}

// GetBookingsForUser returns the user's bookings, newest first.
func (e *Engine) GetBookingsForUser(ctx context.Context, userID uint) ([]model.Booking, error) {
	bookings, err := e.store.Bookings().ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, msgBookingNotFound)
	}
	return nonNil(bookings), nil
}

// GetAllBookings lists bookings matching f for an admin, after sweeping
// expired ones.
func (e *Engine) GetAllBookings(ctx context.Context, caller model.Caller, f model.BookingFilter) ([]model.Booking, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden(constants.NOT_ADMIN)
	}
	e.reconcile(ctx)
	bookings, err := e.store.Bookings().List(ctx, f)
	if err != nil {
		return nil, storeErr(err, msgBookingNotFound)
	}
	return nonNil(bookings), nil
}

// GetBooking returns one booking to its owner or an admin.
func (e *Engine) GetBooking(ctx context.Context, caller model.Caller, bookingID uint) (*model.Booking, error) {
	b, err := e.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, msgBookingNotFound)
	}
	if b.UserId != caller.ID && !caller.IsAdmin() {
		return nil, apperror.Forbidden("Not authorized to view this booking")
	}
	return b, nil
}

func nonNil(bookings []model.Booking) []model.Booking {
	if bookings == nil {
		return []model.Booking{}
	}
	return bookings
}
