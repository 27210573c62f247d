package model

import "time"

type BookingStats struct {
	Booked    int64 `json:"booked"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

// Add records count bookings of the given status.
func (s *BookingStats) Add(status BookingStatus, count int64) {
	switch status {
	case BookingBooked:
		s.Booked += count
	case BookingCompleted:
		s.Completed += count
	case BookingCancelled:
		s.Cancelled += count
	}
}

type DashboardStats struct {
	TotalUsers        int64     `json:"totalUsers"`
	TotalSlots        int64     `json:"totalSlots"`
	ActiveBookings    int64     `json:"activeBookings"`
	CancelledBookings int64     `json:"cancelledBookings"`
	RecentBookings    []Booking `json:"recentBookings"`
}

type ReportData struct {
	Users        int64        `json:"users"`
	Slots        int64        `json:"slots"`
	Bookings     BookingStats `json:"bookings"`
	BookingsList []Booking    `json:"bookingsList"`
}

type ReportRange struct {
	Start time.Time
	End   time.Time
}

// SweepResult summarises one pass of the expiry sweep.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
