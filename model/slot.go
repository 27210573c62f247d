package model

import (
	"errors"
	"fmt"
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotOccupied  SlotStatus = "occupied"
	SlotReserved  SlotStatus = "reserved"
	SlotSpecial   SlotStatus = "special"
)

var (
	ErrSlotOccupied      = errors.New("slot is already occupied")
	ErrSlotHeldByBooking = errors.New("slot is held by an active booking")
	ErrSlotNotToggleable = errors.New("only available and occupied slots can be toggled")
	ErrInvalidSlotStatus = errors.New("invalid slot status")
	ErrInvalidSlotNumber = errors.New("slot number must be a positive integer")
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotOccupied, SlotReserved, SlotSpecial:
		return true
	}
	return false
}

func ParseSlotStatus(v string) (SlotStatus, error) {
	s := SlotStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlotStatus, v)
	}
	return s, nil
}

type Slot struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SlotNumber int        `gorm:"uniqueIndex;not null" json:"slotNumber"`
	Status     SlotStatus `gorm:"type:varchar(16);not null;default:available;index" json:"status"`
	BookedBy   *uint      `json:"bookedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Occupy claims the slot for userID. Any status other than occupied can be
// claimed.
func (s *Slot) Occupy(userID uint) error {
	if s.Status == SlotOccupied {
		return ErrSlotOccupied
	}
	s.Status = SlotOccupied
	s.BookedBy = &userID
	return nil
}

// Release frees the slot and clears its occupant.
func (s *Slot) Release() {
	s.Status = SlotAvailable
	s.BookedBy = nil
}

// HeldBy reports whether the slot is currently occupied on behalf of userID.
func (s *Slot) HeldBy(userID uint) bool {
	return s.Status == SlotOccupied && s.BookedBy != nil && *s.BookedBy == userID
}

// Toggle flips between available and occupied. A slot occupied through a
// booking stays put so the booking keeps its slot.
func (s *Slot) Toggle() error {
	switch s.Status {
	case SlotAvailable:
		s.Status = SlotOccupied
		s.BookedBy = nil
	case SlotOccupied:
		if s.BookedBy != nil {
			return ErrSlotHeldByBooking
		}
		s.Status = SlotAvailable
	default:
		return ErrSlotNotToggleable
	}
	return nil
}

type CreateSlotInput struct {
	SlotNumber int    `json:"slotNumber" validate:"required,gt=0"`
	Status     string `json:"status" validate:"omitempty,oneof=available reserved special"`
}

type SlotAction string

const (
	SlotCreated SlotAction = "created"
	SlotUpdated SlotAction = "updated"
	SlotDeleted SlotAction = "deleted"
)

// SlotEvent is pushed to live subscribers whenever a slot changes.
type SlotEvent struct {
	Action SlotAction `json:"action"`
	Slot   Slot       `json:"slot"`
}
