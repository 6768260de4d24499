package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meinhoongagan/doctors-portal/models"
)

// MongoStore keeps the portal collections in one MongoDB database.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions atomic.Bool
	log          zerolog.Logger

	options  *mongo.Collection
	bookings *mongo.Collection
	users    *mongo.Collection
	doctors  *mongo.Collection
	payments *mongo.Collection
}

// NewMongoStore binds the store to database name. With transactions disabled, payment
// confirmation falls back to a compensating delete instead of a multi-document transaction.
// A server that rejects transactions switches the store to the fallback on first use.
func NewMongoStore(client *mongo.Client, name string, transactions bool, logger zerolog.Logger) *MongoStore {
	database := client.Database(name)
	s := &MongoStore{
		client:   client,
		db:       database,
		log:      logger,
		options:  database.Collection(CollAppointmentOptions),
		bookings: database.Collection(CollBookings),
		users:    database.Collection(CollUsers),
		doctors:  database.Collection(CollDoctors),
		payments: database.Collection(CollPayments),
	}
	s.transactions.Store(transactions)
	return s
}

// illegalOperation is the server code for transactions on a standalone mongod.
const illegalOperation = 20

func transactionsUnsupported(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(illegalOperation) && se.HasErrorMessage("Transaction numbers")
}

func insertResult(res *mongo.InsertOneResult) *models.InsertResult {
	out := &models.InsertResult{Acknowledged: true}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		out.InsertedID = oid.Hex()
	}
	return out
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func (s *MongoStore) ListAppointmentOptions(ctx context.Context) ([]models.AppointmentOption, error) {
	return findAll[models.AppointmentOption](ctx, s.options, bson.M{})
}

// ListAvailableOptions computes remaining slots server side. $filter keeps slot order.
func (s *MongoStore) ListAvailableOptions(ctx context.Context, date string) ([]models.AppointmentOption, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from": CollBookings,
			"let":  bson.M{"name": "$name"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$treatment", "$$name"}},
					bson.M{"$eq": bson.A{"$appointmentDate", date}},
				}}}},
				bson.M{"$project": bson.M{"_id": 0, "slot": 1}},
			},
			"as": "booked",
		}}},
		{{Key: "$project", Value: bson.M{
			"name":  1,
			"price": 1,
			"slots": bson.M{"$filter": bson.M{
				"input": "$slots",
				"as":    "slot",
				"cond":  bson.M{"$not": bson.A{bson.M{"$in": bson.A{"$$slot", "$booked.slot"}}}},
			}},
		}}},
	}

	cursor, err := s.options.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate appointment options: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.AppointmentOption{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode aggregated options: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ListSpecialties(ctx context.Context) ([]models.Specialty, error) {
	return findAll[models.Specialty](ctx, s.options, bson.M{}, options.Find().SetProjection(bson.M{"name": 1}))
}

func (s *MongoStore) ListBookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return findAll[models.Booking](ctx, s.bookings, bson.M{"appointmentDate": date})
}

func (s *MongoStore) ListBookingsByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	return findAll[models.Booking](ctx, s.bookings, bson.M{"email": email})
}

func (s *MongoStore) FindBooking(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

func (s *MongoStore) FindDuplicateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	query := bson.M{
		"email":           b.Email,
		"appointmentDate": b.AppointmentDate,
		"treatment":       b.Treatment,
	}
	var existing models.Booking
	err := s.bookings.FindOne(ctx, query).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check existing booking: %w", err)
	}
	return &existing, nil
}

// InsertBooking relies on the unique (email, appointmentDate, treatment) index and
// reports a collision as models.ErrDuplicateKey.
func (s *MongoStore) InsertBooking(ctx context.Context, b *models.Booking) (*models.InsertResult, error) {
	b.ID = primitive.NilObjectID
	b.Paid = false
	b.TransactionID = ""
	res, err := s.bookings.InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return nil, models.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		b.ID = oid
	}
	return insertResult(res), nil
}

// ConfirmPayment records p and marks its booking paid. The transition is keyed by
// p.TransactionID: confirming the same transaction twice returns the first payment.
func (s *MongoStore) ConfirmPayment(ctx context.Context, p *models.Payment) (*models.InsertResult, error) {
	bookingID, err := primitive.ObjectIDFromHex(p.BookingID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	p.ID = primitive.NilObjectID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var res *models.InsertResult
	if s.transactions.Load() {
		res, err = s.confirmInTransaction(ctx, bookingID, p)
		if transactionsUnsupported(err) {
			s.transactions.Store(false)
			s.log.Warn().Err(err).Msg("server does not support transactions, confirming payments with compensation")
			res, err = s.confirmWithCompensation(ctx, bookingID, p)
		}
	} else {
		res, err = s.confirmWithCompensation(ctx, bookingID, p)
	}
	if errors.Is(err, models.ErrDuplicateKey) {
		// A concurrent confirmation of the same transaction won.
		return s.existingPayment(ctx, p.TransactionID)
	}
	return res, err
}

func (s *MongoStore) confirmInTransaction(ctx context.Context, bookingID primitive.ObjectID, p *models.Payment) (*models.InsertResult, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if res, err := s.findPayment(sc, p.TransactionID); res != nil || err != nil {
			return res, err
		}
		res, err := s.insertPayment(sc, p)
		if err != nil {
			return nil, err
		}
		if err := s.markBookingPaid(sc, bookingID, p.TransactionID); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.InsertResult), nil
}

func (s *MongoStore) confirmWithCompensation(ctx context.Context, bookingID primitive.ObjectID, p *models.Payment) (*models.InsertResult, error) {
	if res, err := s.findPayment(ctx, p.TransactionID); res != nil || err != nil {
		return res, err
	}
	n, err := s.bookings.CountDocuments(ctx, bson.M{"_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("check booking: %w", err)
	}
	if n == 0 {
		return nil, models.ErrBookingNotFound
	}

	res, err := s.insertPayment(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.markBookingPaid(ctx, bookingID, p.TransactionID); err != nil {
		if _, derr := s.payments.DeleteOne(context.WithoutCancel(ctx), bson.M{"transactionId": p.TransactionID}); derr != nil {
			s.log.Error().Err(derr).Str("transaction_id", p.TransactionID).Msg("failed to roll back payment")
		}
		return nil, err
	}
	return res, nil
}

func (s *MongoStore) findPayment(ctx context.Context, transactionID string) (*models.InsertResult, error) {
	var existing models.Payment
	err := s.payments.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &models.InsertResult{Acknowledged: true, InsertedID: existing.ID.Hex()}, nil
}

func (s *MongoStore) existingPayment(ctx context.Context, transactionID string) (*models.InsertResult, error) {
	res, err := s.findPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("payment %s vanished after duplicate key", transactionID)
	}
	return res, nil
}

func (s *MongoStore) insertPayment(ctx context.Context, p *models.Payment) (*models.InsertResult, error) {
	res, err := s.payments.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return nil, models.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return insertResult(res), nil
}

func (s *MongoStore) markBookingPaid(ctx context.Context, bookingID primitive.ObjectID, transactionID string) error {
	update := bson.M{"$set": bson.M{"paid": true, "transactionId": transactionID}}
	res, err := s.bookings.UpdateOne(ctx, bson.M{"_id": bookingID}, update)
	if err != nil {
		return fmt.Errorf("mark booking paid: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]bson.M, error) {
	return findAll[bson.M](ctx, s.users, bson.M{})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) InsertUser(ctx context.Context, doc bson.M) (*models.InsertResult, error) {
	res, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, models.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return insertResult(res), nil
}

func (s *MongoStore) GrantAdmin(ctx context.Context, id primitive.ObjectID) (*models.UpdateResult, error) {
	update := bson.M{"$set": bson.M{"role": models.RoleAdmin}}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("grant admin: %w", err)
	}
	out := &models.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		out.UpsertedID = oid.Hex()
	}
	return out, nil
}

func (s *MongoStore) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	return findAll[models.Doctor](ctx, s.doctors, bson.M{})
}

func (s *MongoStore) InsertDoctor(ctx context.Context, d *models.Doctor) (*models.InsertResult, error) {
	d.ID = primitive.NilObjectID
	res, err := s.doctors.InsertOne(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("insert doctor: %w", err)
	}
	return insertResult(res), nil
}

func (s *MongoStore) DeleteDoctor(ctx context.Context, id primitive.ObjectID) (*models.DeleteResult, error) {
	res, err := s.doctors.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("delete doctor: %w", err)
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

// SeedCatalog upserts options by name, or replaces the whole catalog when replace is set.
func (s *MongoStore) SeedCatalog(ctx context.Context, catalog []models.AppointmentOption, replace bool) (int, error) {
	if replace {
		if _, err := s.options.DeleteMany(ctx, bson.M{}); err != nil {
			return 0, fmt.Errorf("clear catalog: %w", err)
		}
	}
	for _, o := range catalog {
		o.ID = primitive.NilObjectID
		_, err := s.options.ReplaceOne(ctx, bson.M{"name": o.Name}, o, options.Replace().SetUpsert(true))
		if err != nil {
			return 0, fmt.Errorf("seed option %q: %w", o.Name, err)
		}
	}
	return len(catalog), nil
}

// SetAllPrices sets one price on every catalog entry.
func (s *MongoStore) SetAllPrices(ctx context.Context, price float64) (*models.UpdateResult, error) {
	res, err := s.options.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"price": price}})
	if err != nil {
		return nil, fmt.Errorf("update prices: %w", err)
	}
	return &models.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}
