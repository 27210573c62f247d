package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"parking_manager/handler"
	"parking_manager/middleware"
	"parking_manager/validate"
)

// Options tunes the router for tests.
type Options struct {
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

func SetupRoutes(app *fiber.App, h *handler.Handler, opts Options) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: h.Settings.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Authorization, Accept",
		MaxAge:       600,
	}))

	app.Get("/health", handler.Health)

	api := app.Group("/api")
	if opts.AccessLog {
		api.Use(logger.New())
	}

	protected := middleware.Protected([]byte(h.Settings.JWTSecret), h.Store)
	adminOnly := middleware.AdminOnly()
	userOnly := middleware.UserOnly()
	loginLimit := middleware.RateLimit(h.Settings.LoginRate, "login", h.Redis, h.Log)

	users := api.Group("/users")
	users.Post("/register", validate.RegisterUser(), h.RegisterUser)
	users.Post("/login", loginLimit, validate.Login(), h.LoginUser)
	users.Get("/profile", protected, userOnly, h.GetUserProfile)
	users.Put("/profile", protected, userOnly, validate.UpdateProfile(), h.UpdateUserProfile)

	slots := api.Group("/slots")
	slots.Get("/", h.GetSlots)
	slots.Get("/live", handler.UpgradeSlotFeed, h.SlotFeed())
	slots.Post("/", protected, adminOnly, validate.CreateSlot(), h.AddSlot)
	slots.Delete("/:id", protected, adminOnly, validate.GetById("id"), h.DeleteSlot)
	slots.Put("/:id/toggle", protected, adminOnly, validate.GetById("id"), h.ToggleSlot)

	bookings := api.Group("/bookings")
	bookings.Post("/book", protected, userOnly, validate.CreateBooking(), h.CreateBooking)
	bookings.Get("/my", protected, userOnly, h.MyBookings)
	bookings.Get("/", protected, h.AllBookings)
	bookings.Put("/:id/cancel", protected, validate.GetById("id"), h.CancelBooking)
	bookings.Get("/:id/qr", protected, validate.GetById("id"), h.BookingQR)

	admin := api.Group("/admin")
	admin.Post("/login", loginLimit, validate.Login(), h.LoginAdmin)
	admin.Get("/profile", protected, adminOnly, h.GetAdminProfile)
	admin.Put("/profile", protected, adminOnly, validate.UpdateProfile(), h.UpdateAdminProfile)
	admin.Get("/users", protected, adminOnly, h.GetUsers)
	admin.Delete("/users/:id", protected, adminOnly, validate.GetById("id"), h.DeleteUser)
	admin.Get("/dashboard", protected, adminOnly, h.Dashboard)
	admin.Get("/bookings", protected, adminOnly, h.AllBookings)
	admin.Put("/bookings/:id/status", protected, adminOnly, validate.GetById("id"), validate.UpdateBookingStatus(), h.SetBookingStatus)
	admin.Get("/reports", protected, adminOnly, h.Reports)
	admin.Get("/reports/date", protected, adminOnly, h.ReportsByDate)
	admin.Post("/sweep", protected, adminOnly, h.Sweep)
}
