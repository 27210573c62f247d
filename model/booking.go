package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

var (
	ErrInvalidTransition    = errors.New("invalid booking status transition")
	ErrInvalidBookingStatus = errors.New("invalid booking status")
	ErrInvalidBookingDate   = errors.New("invalid booking date")
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingBooked, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// CanTransitionTo allows only booked -> cancelled and booked -> completed.
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	return s == BookingBooked && (to == BookingCancelled || to == BookingCompleted)
}

func ParseBookingStatus(v string) (BookingStatus, error) {
	s := BookingStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBookingStatus, v)
	}
	return s, nil
}

type Booking struct {
	DTO
	Code          string        `gorm:"size:32;uniqueIndex;not null" json:"code"`
	UserId        uint          `gorm:"not null;index" json:"userId"`
	User          *User         `gorm:"foreignKey:UserId" json:"user,omitempty"`
	SlotId        uint          `gorm:"not null;index" json:"slotId"`
	Slot          *Slot         `gorm:"foreignKey:SlotId" json:"slot,omitempty"`
	VehicleNumber string        `gorm:"not null" json:"vehicleNumber"`
	VehicleKey    string        `gorm:"index" json:"-"`
	BookingDate   time.Time     `gorm:"not null;index" json:"bookingDate"`
	BookingTime   string        `gorm:"not null" json:"bookingTime"`
	Status        BookingStatus `gorm:"type:varchar(16);not null;default:booked;index" json:"status"`
}

// TransitionTo moves the booking to a new status if the lifecycle allows it.
func (b *Booking) TransitionTo(to BookingStatus) error {
	if !b.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	return nil
}

// VehicleKey normalises a vehicle number for searching.
func VehicleKey(vehicle string) string {
	return slug.Make(strings.TrimSpace(vehicle))
}

var bookingDateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// ParseBookingDate accepts a calendar date (midnight UTC) or an RFC 3339 timestamp.
func ParseBookingDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range bookingDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBookingDate, v)
}

type CreateBookingInput struct {
	SlotId        uint   `json:"slotId" validate:"required,gt=0"`
	VehicleNumber string `json:"vehicleNumber" validate:"required"`
	BookingDate   string `json:"bookingDate" validate:"required"`
	BookingTime   string `json:"bookingTime" validate:"required"`
}

type UpdateBookingStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// BookingFilter narrows admin booking listings. Zero values match everything.
type BookingFilter struct {
	Status  BookingStatus
	Vehicle string
	From    *time.Time
	To      *time.Time
	Limit   int
}

func (f BookingFilter) Matches(b *Booking) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Vehicle != "" && !strings.Contains(b.VehicleKey, VehicleKey(f.Vehicle)) {
		return false
	}
	if f.From != nil && b.BookingDate.Before(*f.From) {
		return false
	}
	if f.To != nil && b.BookingDate.After(*f.To) {
		return false
	}
	return true
}
