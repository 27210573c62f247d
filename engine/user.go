package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"parking_manager/constants"
	"parking_manager/model"
	"parking_manager/store"
)

// RemoveUser deletes a user account. Their active bookings are cancelled
// first and any slot they still hold is freed; past bookings stay.
func (e *Engine) RemoveUser(ctx context.Context, userID uint) error {
	var released []*model.Slot
	cancelled := 0
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Users().GetForUpdate(ctx, userID); err != nil {
			return storeErr(err, constants.USER_NOT_FOUND)
		}
		bookings, err := tx.Bookings().ListByUser(ctx, userID)
		if err != nil {
			return storeErr(err, msgBookingNotFound)
		}
		for _, listed := range bookings {
			if listed.Status != model.BookingBooked {
				continue
			}
			// The listing is unlocked; a concurrent sweep or cancel may
			// have closed the booking since.
			b, err := tx.Bookings().GetForUpdate(ctx, listed.ID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return storeErr(err, msgBookingNotFound)
			}
			if b.Status != model.BookingBooked {
				continue
			}
			if err := b.TransitionTo(model.BookingCancelled); err != nil {
				return storeErr(err, msgBookingNotFound)
			}
			if err := tx.Bookings().UpdateStatus(ctx, b.ID, b.Status); err != nil {
				return storeErr(err, msgBookingNotFound)
			}
			cancelled++
			slot, err := tx.Slots().GetForUpdate(ctx, b.SlotId)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return storeErr(err, msgSlotNotFound)
			}
			if slot.HeldBy(userID) {
				slot.Release()
				if err := tx.Slots().UpdateState(ctx, slot); err != nil {
					return storeErr(err, msgSlotNotFound)
				}
				released = append(released, slot)
			}
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return storeErr(err, constants.USER_NOT_FOUND)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"user_id":            userID,
		"bookings_cancelled": cancelled,
	}).Info("user removed")
	for _, slot := range released {
		e.publish(ctx, model.SlotUpdated, slot)
	}
	return nil
}
