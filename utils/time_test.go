package utils

import (
	"testing"
	"time"
)

func TestNextDay(t *testing.T) {
	now := time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)
	if got := NextDay(now, "Jan 2, 2006"); got != "Jan 1, 2027" {
		t.Errorf("got %q", got)
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		price float64
		want  int64
	}{
		{50, 5000},
		{19.99, 1999},
		{0.29, 29},
	}
	for _, tt := range tests {
		if got := MinorUnits(tt.price); got != tt.want {
			t.Errorf("MinorUnits(%v) = %d, want %d", tt.price, got, tt.want)
		}
	}
}
