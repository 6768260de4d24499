package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/controllers"
)

// SetupAppointmentRoutes configures the public catalog routes
func SetupAppointmentRoutes(app *fiber.App, h *controllers.Handler) {
	app.Get("/appointmentOptions", h.GetAppointmentOptions)
	app.Get("/v2/appointmentOptions", h.GetAvailableOptions)
	app.Get("/appointmentSpecialty", h.GetAppointmentSpecialty)
}
