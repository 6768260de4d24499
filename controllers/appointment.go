package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/utils"
)

// GetAppointmentOptions returns the catalog with the slots still free on ?date.
func (h *Handler) GetAppointmentOptions(c *fiber.Ctx) error {
	ctx := c.UserContext()
	date := c.Query("date")

	options, err := h.Store.ListAppointmentOptions(ctx)
	if err != nil {
		return fmt.Errorf("list appointment options: %w", err)
	}
	alreadyBooked, err := h.Store.ListBookingsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("list bookings on %q: %w", date, err)
	}

	return c.JSON(utils.RemainingSlots(options, alreadyBooked))
}

// GetAvailableOptions answers like GetAppointmentOptions but lets the store compute
// the remaining slots.
func (h *Handler) GetAvailableOptions(c *fiber.Ctx) error {
	options, err := h.Store.ListAvailableOptions(c.UserContext(), c.Query("date"))
	if err != nil {
		return fmt.Errorf("list available options: %w", err)
	}
	return c.JSON(options)
}

func (h *Handler) GetAppointmentSpecialty(c *fiber.Ctx) error {
	specialties, err := h.Store.ListSpecialties(c.UserContext())
	if err != nil {
		return fmt.Errorf("list specialties: %w", err)
	}
	return c.JSON(specialties)
}
