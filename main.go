package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"parking_manager/config"
	"parking_manager/database"
	"parking_manager/engine"
	"parking_manager/handler"
	"parking_manager/helper"
	"parking_manager/logger"
	"parking_manager/router"
	"parking_manager/utils"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}
	log := logger.Init(logger.Options{Level: settings.LogLevel, File: settings.LogFile, JSON: settings.LogFile != ""})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := database.OpenStore(settings, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	if err := database.SeedData(ctx, st, settings, log); err != nil {
		log.WithError(err).Fatal("failed to seed data")
	}

	var rdb *redis.Client
	if settings.RedisURL != "" {
		opt, err := redis.ParseURL(settings.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, continuing without it")
			rdb.Close()
			rdb = nil
		}
	}

	hub := helper.NewSlotHub(rdb, log)
	go hub.Run(ctx)

	eng := engine.New(st, log, engine.WithNotifier(hub))
	mailer := utils.NewMailer(settings, log)

	sweeper, err := helper.StartSweepScheduler(eng, settings.SweepInterval, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start sweep scheduler")
	}
	defer sweeper.Shutdown()

	if mailer.Enabled() && settings.AdminEmail != "" {
		digest, err := helper.StartReportDigest(settings.ReportCron, eng, mailer, settings.AdminEmail, log)
		if err != nil {
			log.WithError(err).Fatal("failed to start report digest")
		}
		defer digest.Stop()
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	router.SetupRoutes(app, &handler.Handler{
		Engine:   eng,
		Store:    st,
		Settings: settings,
		Mailer:   mailer,
		Hub:      hub,
		Redis:    rdb,
		Log:      log,
	}, router.Options{AccessLog: true})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("port", settings.Port).Info("server starting")
	if err := app.Listen(":" + settings.Port); err != nil {
		log.WithError(err).Error("server stopped")
	}
	if rdb != nil {
		rdb.Close()
	}
}
