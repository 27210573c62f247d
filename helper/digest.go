package helper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"parking_manager/model"
)

type ReportSource interface {
	Report(ctx context.Context, rng *model.ReportRange) (*model.ReportData, error)
}

type DigestSender interface {
	SendReportDigest(to string, day time.Time, report *model.ReportData) error
}

// DayRange covers the whole UTC calendar day of t. Booking dates are stored
// at midnight UTC, so the range is built in UTC whatever t's location.
func DayRange(t time.Time) model.ReportRange {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return model.ReportRange{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Millisecond)}
}

// RunReportDigest mails the previous day's booking report to the admin.
func RunReportDigest(ctx context.Context, src ReportSource, sender DigestSender, to string, now time.Time) error {
	rng := DayRange(now.UTC().AddDate(0, 0, -1))
	report, err := src.Report(ctx, &rng)
	if err != nil {
		return err
	}
	return sender.SendReportDigest(to, rng.Start, report)
}

// StartReportDigest schedules RunReportDigest on a standard cron spec.
func StartReportDigest(spec string, src ReportSource, sender DigestSender, to string, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := RunReportDigest(ctx, src, sender, to, time.Now()); err != nil {
			log.WithError(err).Error("[CRON] report digest failed")
			return
		}
		log.WithField("to", to).Info("[CRON] report digest sent")
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.WithField("spec", spec).Info("report digest scheduler started")
	return c, nil
}
