package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/controllers"
)

// SetupBookingRoutes configures all booking related routes
func SetupBookingRoutes(app *fiber.App, h *controllers.Handler, protected fiber.Handler) {
	bookings := app.Group("/bookings")
	bookings.Get("/", protected, h.GetBookings)
	bookings.Get("/:id", h.GetBooking)
	bookings.Post("/", h.CreateBooking)
}
