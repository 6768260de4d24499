package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// MemoryStore is a process-local store with the same contract and unique keys as MongoStore.
// It backs STORE=memory and the handler tests.
type MemoryStore struct {
	mu       sync.RWMutex
	options  []models.AppointmentOption
	bookings []models.Booking
	users    []bson.M
	doctors  []models.Doctor
	payments []models.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func cloneOption(o models.AppointmentOption) models.AppointmentOption {
	o.Slots = append([]string(nil), o.Slots...)
	return o
}

func (s *MemoryStore) ListAppointmentOptions(ctx context.Context) ([]models.AppointmentOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AppointmentOption, 0, len(s.options))
	for _, o := range s.options {
		out = append(out, cloneOption(o))
	}
	return out, nil
}

func (s *MemoryStore) ListAvailableOptions(ctx context.Context, date string) ([]models.AppointmentOption, error) {
	options, err := s.ListAppointmentOptions(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := s.ListBookingsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return utils.RemainingSlots(options, bookings), nil
}

func (s *MemoryStore) ListSpecialties(ctx context.Context) ([]models.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Specialty, 0, len(s.options))
	for _, o := range s.options {
		out = append(out, models.Specialty{ID: o.ID, Name: o.Name})
	}
	return out, nil
}

func (s *MemoryStore) filterBookings(match func(*models.Booking) bool) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Booking{}
	for i := range s.bookings {
		if match(&s.bookings[i]) {
			out = append(out, s.bookings[i])
		}
	}
	return out
}

func (s *MemoryStore) ListBookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool { return b.AppointmentDate == date }), nil
}

func (s *MemoryStore) ListBookingsByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	return s.filterBookings(func(b *models.Booking) bool { return b.Email == email }), nil
}

func (s *MemoryStore) FindBooking(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	found := s.filterBookings(func(b *models.Booking) bool { return b.ID == id })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *MemoryStore) FindDuplicateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	found := s.filterBookings(func(existing *models.Booking) bool { return existing.SameAppointment(b) })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *MemoryStore) InsertBooking(ctx context.Context, b *models.Booking) (*models.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].SameAppointment(b) {
			return nil, models.ErrDuplicateKey
		}
	}
	b.ID = primitive.NewObjectID()
	b.Paid = false
	b.TransactionID = ""
	s.bookings = append(s.bookings, *b)
	return &models.InsertResult{Acknowledged: true, InsertedID: b.ID.Hex()}, nil
}

// ConfirmPayment applies the payment transition atomically under the store lock.
func (s *MemoryStore) ConfirmPayment(ctx context.Context, p *models.Payment) (*models.InsertResult, error) {
	bookingID, err := primitive.ObjectIDFromHex(p.BookingID)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.TransactionID == p.TransactionID {
			return &models.InsertResult{Acknowledged: true, InsertedID: existing.ID.Hex()}, nil
		}
	}
	idx := -1
	for i := range s.bookings {
		if s.bookings[i].ID == bookingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, models.ErrBookingNotFound
	}

	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.payments = append(s.payments, *p)
	s.bookings[idx].Paid = true
	s.bookings[idx].TransactionID = p.TransactionID
	return &models.InsertResult{Acknowledged: true, InsertedID: p.ID.Hex()}, nil
}

// Payments returns a copy of the payment log.
func (s *MemoryStore) Payments() []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Payment(nil), s.payments...)
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]bson.M, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]bson.M, 0, len(s.users))
	for _, u := range s.users {
		cp := make(bson.M, len(u))
		for k, v := range u {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

func decodeUser(doc bson.M) (*models.User, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	var user models.User
	if err := bson.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u["email"] == email {
			return decodeUser(u)
		}
	}
	return nil, nil
}

func (s *MemoryStore) InsertUser(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email, ok := doc["email"]; ok {
		for _, u := range s.users {
			if u["email"] == email {
				return nil, models.ErrDuplicateKey
			}
		}
	}
	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
	}
	stored := make(bson.M, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored["_id"] = id
	s.users = append(s.users, stored)
	return &models.InsertResult{Acknowledged: true, InsertedID: id.Hex()}, nil
}

func (s *MemoryStore) GrantAdmin(ctx context.Context, id primitive.ObjectID) (*models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u["_id"] == id {
			modified := int64(0)
			if u["role"] != models.RoleAdmin {
				u["role"] = models.RoleAdmin
				modified = 1
			}
			return &models.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: modified}, nil
		}
	}
	s.users = append(s.users, bson.M{"_id": id, "role": models.RoleAdmin})
	return &models.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: id.Hex()}, nil
}

func (s *MemoryStore) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Doctor{}, s.doctors...), nil
}

func (s *MemoryStore) InsertDoctor(ctx context.Context, d *models.Doctor) (*models.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = primitive.NewObjectID()
	s.doctors = append(s.doctors, *d)
	return &models.InsertResult{Acknowledged: true, InsertedID: d.ID.Hex()}, nil
}

func (s *MemoryStore) DeleteDoctor(ctx context.Context, id primitive.ObjectID) (*models.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doctors {
		if s.doctors[i].ID == id {
			s.doctors = append(s.doctors[:i], s.doctors[i+1:]...)
			return &models.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
		}
	}
	return &models.DeleteResult{Acknowledged: true}, nil
}

func (s *MemoryStore) SeedCatalog(ctx context.Context, catalog []models.AppointmentOption, replace bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		s.options = nil
	}
	for _, o := range catalog {
		o = cloneOption(o)
		replaced := false
		for i := range s.options {
			if s.options[i].Name == o.Name {
				o.ID = s.options[i].ID
				s.options[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			o.ID = primitive.NewObjectID()
			s.options = append(s.options, o)
		}
	}
	return len(catalog), nil
}

func (s *MemoryStore) SetAllPrices(ctx context.Context, price float64) (*models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &models.UpdateResult{Acknowledged: true, MatchedCount: int64(len(s.options))}
	for i := range s.options {
		if s.options[i].Price != price {
			s.options[i].Price = price
			res.ModifiedCount++
		}
	}
	return res, nil
}
