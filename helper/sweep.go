package helper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"parking_manager/model"
)

// Sweeper completes bookings whose date has passed.
type Sweeper interface {
	SweepExpiredBookings(ctx context.Context, now time.Time) (model.SweepResult, error)
}

// StartSweepScheduler runs the expiry sweep every interval until the
// returned scheduler is shut down. Runs never overlap.
func StartSweepScheduler(sweeper Sweeper, interval time.Duration, log logrus.FieldLogger) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := sweeper.SweepExpiredBookings(ctx, time.Now()); err != nil {
				log.WithError(err).Error("[CRON] booking sweep failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithName("booking-sweep"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}

	s.Start()
	log.WithField("interval", interval.String()).Info("booking sweep scheduler started")
	return s, nil
}
