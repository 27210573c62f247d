package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"parking_manager/apperror"
	"parking_manager/model"
	"parking_manager/store"
)

func (e *Engine) ListSlots(ctx context.Context) ([]model.Slot, error) {
	slots, err := e.store.Slots().List(ctx)
	if err != nil {
		return nil, storeErr(err, msgSlotNotFound)
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	return slots, nil
}

// AddSlot creates a slot with the given number. An empty status means
// available; occupied cannot be requested since there is no occupant.
func (e *Engine) AddSlot(ctx context.Context, number int, status string) (*model.Slot, error) {
	if number <= 0 {
		return nil, apperror.InvalidArgument("Slot number must be a positive integer")
	}
	st := model.SlotAvailable
	if status = strings.TrimSpace(status); status != "" {
		parsed, err := model.ParseSlotStatus(status)
		if err != nil || parsed == model.SlotOccupied {
			return nil, apperror.InvalidArgument("Status must be available, reserved or special")
		}
		st = parsed
	}

	slot := &model.Slot{SlotNumber: number, Status: st}
	if err := e.store.Slots().Create(ctx, slot); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperror.Conflict("Slot already exists")
		}
		return nil, storeErr(err, msgSlotNotFound)
	}

	e.log.WithFields(logrus.Fields{"slot_id": slot.ID, "slot_number": number}).Info("slot added")
	e.publish(ctx, model.SlotCreated, slot)
	return slot, nil
}

// DeleteSlot removes a slot outright. Bookings that reference it are kept
// as history, even an active one.
func (e *Engine) DeleteSlot(ctx context.Context, id uint) error {
	var deleted *model.Slot
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		slot, err := tx.Slots().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, msgSlotNotFound)
		}
		active, err := tx.Bookings().ActiveForSlot(ctx, id)
		switch {
		case err == nil:
			e.log.WithFields(logrus.Fields{
				"slot_id":    id,
				"booking_id": active.ID,
			}).Warn("deleting slot with an active booking")
		case !errors.Is(err, store.ErrNotFound):
			return storeErr(err, msgSlotNotFound)
		}
		if err := tx.Slots().Delete(ctx, id); err != nil {
			return storeErr(err, msgSlotNotFound)
		}
		deleted = slot
		return nil
	})
	if err != nil {
		return err
	}

	e.log.WithField("slot_id", id).Info("slot deleted")
	e.publish(ctx, model.SlotDeleted, deleted)
	return nil
}

// ToggleSlotStatus flips a slot between available and occupied by hand.
// Reserved and special slots are rejected, as is a slot held by a booking.
func (e *Engine) ToggleSlotStatus(ctx context.Context, id uint) (*model.Slot, error) {
	var slot *model.Slot
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		s, err := tx.Slots().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, msgSlotNotFound)
		}
		if err := s.Toggle(); err != nil {
			switch {
			case errors.Is(err, model.ErrSlotHeldByBooking):
				return apperror.Conflict("Slot is held by an active booking")
			case errors.Is(err, model.ErrSlotNotToggleable):
				return apperror.InvalidArgument("Only available or occupied slots can be toggled")
			}
			return apperror.Internal("toggle slot", err)
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

	e.log.WithFields(logrus.Fields{"slot_id": id, "status": slot.Status}).Info("slot toggled")
	e.publish(ctx, model.SlotUpdated, slot)
	return slot, nil
}
