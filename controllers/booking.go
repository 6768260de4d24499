package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/middleware"
	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// GetBookings lists the caller's own bookings. ?email must match the token.
func (h *Handler) GetBookings(c *fiber.Ctx) error {
	email := c.Query("email")
	if email != middleware.Email(c) {
		return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
			Message: "Forbidden access",
		})
	}

	bookings, err := h.Store.ListBookingsByEmail(c.UserContext(), email)
	if err != nil {
		return fmt.Errorf("list bookings of %s: %w", email, err)
	}
	return c.JSON(bookings)
}

// GetBooking answers null for an unknown booking.
func (h *Handler) GetBooking(c *fiber.Ctx) error {
	id, err := objectID(c, "booking")
	if err != nil {
		return err
	}

	booking, err := h.Store.FindBooking(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("find booking %s: %w", id.Hex(), err)
	}
	if booking == nil {
		return c.JSON(nil)
	}
	return c.JSON(booking)
}

// CreateBooking inserts a booking unless the patient already booked the same treatment
// on that date, which is answered with acknowledged=false.
func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	booking := new(models.Booking)
	if err := h.parseBody(c, booking); err != nil {
		return err
	}
	ctx := c.UserContext()

	existing, err := h.Store.FindDuplicateBooking(ctx, booking)
	if err != nil {
		return fmt.Errorf("check existing booking: %w", err)
	}
	if existing != nil {
		return h.duplicateBooking(c, booking)
	}

	result, err := h.Store.InsertBooking(ctx, booking)
	if errors.Is(err, models.ErrDuplicateKey) {
		return h.duplicateBooking(c, booking)
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if h.Metrics != nil {
		h.Metrics.BookingsCreated.Inc()
	}
	if h.Mailer != nil {
		h.mail.Add(1)
		go func(b models.Booking) {
			defer h.mail.Done()
			h.sendBookingEmail(b)
		}(*booking)
	}
	return c.JSON(result)
}

func (h *Handler) duplicateBooking(c *fiber.Ctx, booking *models.Booking) error {
	if h.Metrics != nil {
		h.Metrics.BookingsRejected.Inc()
	}
	return c.JSON(models.SoftFailure{
		Acknowledged: false,
		Message:      fmt.Sprintf("You already have a %s booking on %s", booking.Treatment, booking.AppointmentDate),
	})
}

func (h *Handler) sendBookingEmail(booking models.Booking) {
	subject := fmt.Sprintf("Your %s appointment is confirmed", booking.Treatment)
	body := fmt.Sprintf(`
		<p>Your appointment for <strong>%s</strong> is booked.</p>
		<p><strong>Date:</strong> %s<br><strong>Time:</strong> %s<br><strong>Price:</strong> $%.2f</p>
	`, booking.Treatment, booking.AppointmentDate, booking.Slot, booking.Price)

	if err := h.Mailer.SendEmail(booking.Email, subject, body); err != nil {
		h.Log.Error().Err(err).Str("booking_id", booking.ID.Hex()).Msg("failed to send booking email")
	}
}
