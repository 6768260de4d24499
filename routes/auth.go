package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/controllers"
)

// SetupUserRoutes configures token issuance and user management routes
func SetupUserRoutes(app *fiber.App, h *controllers.Handler, protected, admin fiber.Handler) {
	app.Get("/jwt", h.IssueJWT)

	users := app.Group("/users")
	users.Get("/", h.GetUsers)
	users.Post("/", h.CreateUser)
	users.Get("/admin/:email", h.CheckAdmin)
	users.Put("/admin/:id", protected, admin, h.MakeAdmin)
}
