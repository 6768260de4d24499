package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// ReminderLedger remembers which bookings were already reminded, shared by every
// instance that runs the reminder job.
type ReminderLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReminderLedger(client *redis.Client, ttl time.Duration) *ReminderLedger {
	return &ReminderLedger{client: client, ttl: ttl}
}

func reminderKey(bookingID string) string {
	return "doctors-portal:reminder:" + bookingID
}

// Claim returns true for the first caller only.
func (l *ReminderLedger) Claim(ctx context.Context, bookingID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, reminderKey(bookingID), time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim reminder %s: %w", bookingID, err)
	}
	return ok, nil
}

// Release forgets a claim so a failed send can be retried on the next run.
func (l *ReminderLedger) Release(ctx context.Context, bookingID string) error {
	if err := l.client.Del(ctx, reminderKey(bookingID)).Err(); err != nil {
		return fmt.Errorf("release reminder %s: %w", bookingID, err)
	}
	return nil
}
