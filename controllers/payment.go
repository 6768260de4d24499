package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// CreatePaymentIntent asks the gateway for a USD card payment of price dollars.
func (h *Handler) CreatePaymentIntent(c *fiber.Ctx) error {
	req := new(models.PaymentIntentRequest)
	if err := h.parseBody(c, req); err != nil {
		return err
	}

	secret, err := h.Payments.CreatePaymentIntent(c.UserContext(), utils.MinorUnits(req.Price))
	if err != nil {
		h.Log.Error().Err(err).Float64("price", req.Price).Msg("payment intent failed")
		return fiber.NewError(fiber.StatusBadGateway, "failed to create payment intent")
	}
	return c.JSON(fiber.Map{"clientSecret": secret})
}

// ConfirmPayment stores the payment and marks its booking paid in one step.
func (h *Handler) ConfirmPayment(c *fiber.Ctx) error {
	payment := new(models.Payment)
	if err := h.parseBody(c, payment); err != nil {
		return err
	}

	result, err := h.Store.ConfirmPayment(c.UserContext(), payment)
	switch {
	case errors.Is(err, models.ErrInvalidID):
		return fiber.NewError(fiber.StatusBadRequest, "invalid booking id")
	case errors.Is(err, models.ErrBookingNotFound):
		return fiber.NewError(fiber.StatusNotFound, "booking not found")
	case err != nil:
		return fmt.Errorf("confirm payment %s: %w", payment.TransactionID, err)
	}

	if h.Metrics != nil {
		h.Metrics.PaymentsConfirmed.Inc()
	}
	h.Log.Info().Str("booking_id", payment.BookingID).Str("transaction_id", payment.TransactionID).Msg("payment confirmed")
	return c.JSON(result)
}
