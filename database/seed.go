package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"parking_manager/config"
	"parking_manager/helper"
	"parking_manager/model"
	"parking_manager/store"
)

// SeedData creates the default admin when none exists and slots 1..N when
// the slot inventory is empty.
func SeedData(ctx context.Context, st store.Store, settings *config.Settings, log logrus.FieldLogger) error {
	if err := seedAdmin(ctx, st, settings, log); err != nil {
		return err
	}
	return seedSlots(ctx, st, settings.SeedSlots, log)
}

func seedAdmin(ctx context.Context, st store.Store, settings *config.Settings, log logrus.FieldLogger) error {
	_, err := st.Admins().GetByEmail(ctx, settings.AdminSeedEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := helper.HashPassword(settings.AdminSeedPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := model.Admin{Name: "Admin", Email: settings.AdminSeedEmail, Password: hash}
	if err := st.Admins().Create(ctx, &admin); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.WithField("email", admin.Email).Info("default admin created")
	return nil
}

func seedSlots(ctx context.Context, st store.Store, count int, log logrus.FieldLogger) error {
	n, err := st.Slots().Count(ctx)
	if err != nil {
		return fmt.Errorf("count slots: %w", err)
	}
	if n > 0 || count == 0 {
		return nil
	}
	for i := 1; i <= count; i++ {
		slot := model.Slot{SlotNumber: i, Status: model.SlotAvailable}
		if err := st.Slots().Create(ctx, &slot); err != nil && !errors.Is(err, store.ErrDuplicate) {
			log.WithError(err).WithField("slot_number", i).Error("failed to seed slot")
		}
	}
	log.WithField("count", count).Info("slots seeded")
	return nil
}
