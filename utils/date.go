package utils

import (
	"errors"
	"strings"
	"time"

	"parking_manager/model"
)

var ErrInvalidRange = errors.New("end date is before start date")

// ParseReportRange turns two YYYY-MM-DD (or RFC 3339) dates into a range
// that includes the whole end day.
func ParseReportRange(startDate, endDate string) (model.ReportRange, error) {
	start, err := model.ParseBookingDate(startDate)
	if err != nil {
		return model.ReportRange{}, err
	}
	end, err := model.ParseBookingDate(endDate)
	if err != nil {
		return model.ReportRange{}, err
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999_000_000, time.UTC)
	if end.Before(start) {
		return model.ReportRange{}, ErrInvalidRange
	}
	return model.ReportRange{Start: start, End: end}, nil
}

// OptionalDate parses v when present.
func OptionalDate(v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := model.ParseBookingDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
