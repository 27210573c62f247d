// Package engine owns every write to slot and booking state. Slot occupancy
// and booking status are always changed together inside one store
// transaction, so the two never disagree.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"parking_manager/apperror"
	"parking_manager/model"
	"parking_manager/store"
)

// Notifier receives slot changes after they are committed.
type Notifier interface {
	Publish(ctx context.Context, ev model.SlotEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, model.SlotEvent) {}

type Engine struct {
	store  store.Store
	log    logrus.FieldLogger
	notify Notifier
	now    func() time.Time
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notify = n
		}
	}
}

// WithClock replaces time.Now for read-time sweeps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(st store.Store, log logrus.FieldLogger, opts ...Option) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		store:  st,
		log:    log.WithField("component", "engine"),
		notify: nopNotifier{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) publish(ctx context.Context, action model.SlotAction, slot *model.Slot) {
	if slot == nil {
		return
	}
	e.notify.Publish(ctx, model.SlotEvent{Action: action, Slot: *slot})
}

// storeErr turns a store failure into an application error. Errors that
// already carry a kind pass through untouched.
func storeErr(err error, notFound string) error {
	var appErr *apperror.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return apperror.NotFound(notFound)
	case errors.Is(err, store.ErrDuplicate):
		return apperror.Conflict("Record already exists")
	}
	return apperror.Internal("store operation failed", err)
}
