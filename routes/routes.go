package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/meinhoongagan/doctors-portal/controllers"
	"github.com/meinhoongagan/doctors-portal/metrics"
	"github.com/meinhoongagan/doctors-portal/middleware"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// Options configures the HTTP application.
type Options struct {
	Handler     *controllers.Handler
	TokenSecret string
	CORSOrigins string
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Log         zerolog.Logger
}

// New builds the fiber app with every portal route.
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "doctors-portal",
		Immutable:             true,
		ErrorHandler:          middleware.ErrorHandler(opts.Log),
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: utils.GenerateRequestID}))
	app.Use(cors.New(cors.Config{AllowOrigins: opts.CORSOrigins}))
	app.Use(middleware.Logger(opts.Log))
	if opts.Metrics != nil {
		app.Use(middleware.Metrics(opts.Metrics))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Doctor portal server is running")
	})
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	protected := middleware.Protected(opts.TokenSecret)
	admin := middleware.RequireAdmin(opts.Handler.Store)

	SetupAppointmentRoutes(app, opts.Handler)
	SetupBookingRoutes(app, opts.Handler, protected)
	SetupPaymentRoutes(app, opts.Handler)
	SetupUserRoutes(app, opts.Handler, protected, admin)
	SetupDoctorRoutes(app, opts.Handler, protected, admin)

	return app
}
