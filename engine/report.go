package engine

import (
	"context"

	"parking_manager/model"
)

const recentBookingsLimit = 5

// Dashboard summarises users, slots and bookings for the admin home page.
func (e *Engine) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	e.reconcile(ctx)

	users, err := e.store.Users().Count(ctx)
	if err != nil {
		return nil, storeErr(err, "")
	}
	slots, err := e.store.Slots().Count(ctx)
	if err != nil {
		return nil, storeErr(err, "")
	}
	stats, err := e.store.Bookings().CountByStatus(ctx, model.BookingFilter{})
	if err != nil {
		return nil, storeErr(err, "")
	}
	recent, err := e.store.Bookings().List(ctx, model.BookingFilter{Limit: recentBookingsLimit})
	if err != nil {
		return nil, storeErr(err, "")
	}

	return &model.DashboardStats{
		TotalUsers:        users,
		TotalSlots:        slots,
		ActiveBookings:    stats.Booked,
		CancelledBookings: stats.Cancelled,
		RecentBookings:    nonNil(recent),
	}, nil
}

// Report aggregates bookings by status. With a range, only bookings whose
// booking date falls inside it are counted and listed.
func (e *Engine) Report(ctx context.Context, rng *model.ReportRange) (*model.ReportData, error) {
	e.reconcile(ctx)

	var f model.BookingFilter
	if rng != nil {
		start, end := rng.Start, rng.End
		f.From, f.To = &start, &end
	}

	users, err := e.store.Users().Count(ctx)
	if err != nil {
		return nil, storeErr(err, "")
	}
	slots, err := e.store.Slots().Count(ctx)
	if err != nil {
		return nil, storeErr(err, "")
	}
	stats, err := e.store.Bookings().CountByStatus(ctx, f)
	if err != nil {
		return nil, storeErr(err, "")
	}
	list, err := e.store.Bookings().List(ctx, f)
	if err != nil {
		return nil, storeErr(err, "")
	}

	return &model.ReportData{
		Users:        users,
		Slots:        slots,
		Bookings:     stats,
		BookingsList: nonNil(list),
	}, nil
}
