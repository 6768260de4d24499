package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/controllers"
)

// SetupDoctorRoutes configures the admin-only doctor routes
func SetupDoctorRoutes(app *fiber.App, h *controllers.Handler, protected, admin fiber.Handler) {
	doctors := app.Group("/doctors", protected, admin)
	doctors.Get("/", h.GetDoctors)
	doctors.Post("/", h.CreateDoctor)
	doctors.Delete("/:id", h.DeleteDoctor)
}
