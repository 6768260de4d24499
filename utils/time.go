package utils

import "time"

// NextDay formats the calendar day after t with the portal's appointment date layout.
func NextDay(t time.Time, layout string) string {
	return t.AddDate(0, 0, 1).Format(layout)
}
