package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"parking_manager/config"
	"parking_manager/model"
	"parking_manager/store"
)

// ConnectDB opens the postgres connection and migrates the schema.
func ConnectDB(settings *config.Settings, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(settings.DSN()), &gorm.Config{
		// Bookings outlive the slots and users they point at.
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("Connection Opened to Database")

	if err := db.AutoMigrate(
		&model.Slot{},
		&model.User{},
		&model.Admin{},
		&model.Booking{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Info("Database Migrated")
	return db, nil
}

// OpenStore returns the store selected by STORE_DRIVER.
func OpenStore(settings *config.Settings, log logrus.FieldLogger) (store.Store, error) {
	switch settings.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		db, err := ConnectDB(settings, log)
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(db), nil
	}
}
