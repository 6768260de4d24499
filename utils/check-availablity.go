package utils

import "github.com/meinhoongagan/doctors-portal/models"

// RemainingSlots replaces the slots of every option with the ones not yet booked.
// bookings must already be restricted to a single appointment date. Slot order is kept.
func RemainingSlots(options []models.AppointmentOption, bookings []models.Booking) []models.AppointmentOption {
	booked := make(map[string]map[string]struct{}, len(options))
	for _, b := range bookings {
		slots, ok := booked[b.Treatment]
		if !ok {
			slots = make(map[string]struct{})
			booked[b.Treatment] = slots
		}
		slots[b.Slot] = struct{}{}
	}

	result := make([]models.AppointmentOption, len(options))
	for i, option := range options {
		taken := booked[option.Name]
		remaining := make([]string, 0, len(option.Slots))
		for _, slot := range option.Slots {
			if _, ok := taken[slot]; !ok {
				remaining = append(remaining, slot)
			}
		}
		option.Slots = remaining
		result[i] = option
	}
	return result
}
