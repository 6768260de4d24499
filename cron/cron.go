package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/meinhoongagan/doctors-portal/metrics"
	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// BookingLister is the part of the store the reminder job reads.
type BookingLister interface {
	ListBookingsByDate(ctx context.Context, date string) ([]models.Booking, error)
}

// Ledger makes sure a booking is reminded once even with several instances running.
type Ledger interface {
	Claim(ctx context.Context, bookingID string) (bool, error)
	Release(ctx context.Context, bookingID string) error
}

// Reminder emails patients the day before their appointment.
type Reminder struct {
	Bookings   BookingLister
	Ledger     Ledger
	Mailer     utils.Mailer
	DateLayout string
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
	Now        func() time.Time
}

// Start schedules the reminder job with spec and returns the running scheduler.
func Start(spec string, r *Reminder) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.Run(ctx); err != nil {
			r.Log.Error().Err(err).Msg("appointment reminder run failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add reminder job %q: %w", spec, err)
	}
	c.Start()
	r.Log.Info().Str("schedule", spec).Msg("appointment reminder scheduler started")
	return c, nil
}

// Run sends the reminders for tomorrow's bookings and returns how many were sent.
func (r *Reminder) Run(ctx context.Context) (int, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	date := utils.NextDay(now(), r.DateLayout)

	bookings, err := r.Bookings.ListBookingsByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("list bookings for %s: %w", date, err)
	}
	r.Log.Info().Str("date", date).Int("bookings", len(bookings)).Msg("sending appointment reminders")

	sent := 0
	for _, booking := range bookings {
		id := booking.ID.Hex()
		claimed, err := r.Ledger.Claim(ctx, id)
		if err != nil {
			r.Log.Error().Err(err).Str("booking_id", id).Msg("failed to claim reminder")
			continue
		}
		if !claimed {
			continue
		}
		subject, body := reminderEmail(&booking)
		if err := r.Mailer.SendEmail(booking.Email, subject, body); err != nil {
			r.Log.Error().Err(err).Str("booking_id", id).Msg("failed to send reminder")
			if r.Metrics != nil {
				r.Metrics.RemindersFailed.Inc()
			}
			if err := r.Ledger.Release(ctx, id); err != nil {
				r.Log.Error().Err(err).Str("booking_id", id).Msg("failed to release reminder")
			}
			continue
		}
		sent++
		if r.Metrics != nil {
			r.Metrics.RemindersSent.Inc()
		}
	}
	return sent, nil
}

func reminderEmail(b *models.Booking) (string, string) {
	subject := fmt.Sprintf("Reminder: %s appointment on %s", b.Treatment, b.AppointmentDate)
	name := b.Patient
	if name == "" {
		name = b.Email
	}
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your appointment tomorrow.</p>
		<ul>
			<li><strong>Treatment:</strong> %s</li>
			<li><strong>Date:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
		</ul>
		<p>Please arrive on time.</p>
		<p>Doctors Portal</p>
	`, name, b.Treatment, b.AppointmentDate, b.Slot)
	return subject, body
}

// MemoryLedger is a Ledger for single-instance deployments without Redis.
type MemoryLedger struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claimed: make(map[string]struct{})}
}

func (l *MemoryLedger) Claim(_ context.Context, bookingID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.claimed[bookingID]; ok {
		return false, nil
	}
	l.claimed[bookingID] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, bookingID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, bookingID)
	return nil
}
