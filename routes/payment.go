package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/controllers"
)

func SetupPaymentRoutes(app *fiber.App, h *controllers.Handler) {
	app.Post("/create-payment-intent", h.CreatePaymentIntent)
	app.Post("/payment", h.ConfirmPayment)
}
