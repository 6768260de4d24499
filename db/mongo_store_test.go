package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/meinhoongagan/doctors-portal/models"
)

const testDB = "doctorsPortal"

func ns(coll string) string {
	return testDB + "." + coll
}

func mockStore(mt *mtest.T, transactions bool) *MongoStore {
	return NewMongoStore(mt.Client, testDB, transactions, zerolog.Nop())
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

var duplicateKey = mtest.CreateWriteErrorsResponse(mtest.WriteError{
	Index:   0,
	Code:    11000,
	Message: "E11000 duplicate key error collection",
})

func emptyCursor(coll string) bson.D {
	return mtest.CreateCursorResponse(0, ns(coll), mtest.FirstBatch)
}

func countResponse(n int32) bson.D {
	if n == 0 {
		return emptyCursor(CollBookings)
	}
	return mtest.CreateCursorResponse(0, ns(CollBookings), mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func updateResponse(matched, modified int32) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: matched}, bson.E{Key: "nModified", Value: modified})
}

func samplePayment(bookingID primitive.ObjectID) *models.Payment {
	return &models.Payment{BookingID: bookingID.Hex(), TransactionID: "pi_3Nabc", Price: 99, Email: "a@example.com"}
}

func TestMongoStore_InsertBooking(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate key maps to ErrDuplicateKey", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey)
		_, err := mockStore(mt, false).InsertBooking(context.Background(), &models.Booking{
			Email: "a@example.com", AppointmentDate: "Nov 3, 2026", Treatment: "Oral Surgery", Slot: "08.00 AM",
		})
		if !errors.Is(err, models.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})

	mt.Run("new booking starts unpaid", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		b := &models.Booking{
			Email: "a@example.com", AppointmentDate: "Nov 3, 2026", Treatment: "Oral Surgery", Slot: "08.00 AM",
			Paid: true, TransactionID: "forged",
		}
		res, err := mockStore(mt, false).InsertBooking(context.Background(), b)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if !res.Acknowledged || res.InsertedID == "" || res.InsertedID != b.ID.Hex() {
			t.Errorf("unexpected result %+v for booking %s", res, b.ID.Hex())
		}

		evt := mt.GetStartedEvent()
		doc := evt.Command.Lookup("documents").Array().Index(0).Value().Document()
		if doc.Lookup("paid").Boolean() {
			t.Error("a new booking must be stored unpaid")
		}
		if _, err := doc.LookupErr("transactionId"); err == nil {
			t.Error("a new booking must not carry a transaction id")
		}
	})
}

func TestMongoStore_InsertUserDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey)
		_, err := mockStore(mt, false).InsertUser(context.Background(), bson.M{"email": "a@example.com"})
		if !errors.Is(err, models.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})
}

func TestMongoStore_ListAvailableOptions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("aggregation", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(CollAppointmentOptions), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Oral Surgery"},
			{Key: "price", Value: 99.0},
			{Key: "slots", Value: bson.A{"08.00 AM", "09.00 AM"}},
		}))

		options, err := mockStore(mt, false).ListAvailableOptions(context.Background(), "Nov 3, 2026")
		if err != nil {
			t.Fatalf("aggregate: %v", err)
		}
		if len(options) != 1 || options[0].ID != id || len(options[0].Slots) != 2 {
			t.Fatalf("unexpected options %+v", options)
		}

		evt := mt.GetStartedEvent()
		if evt.CommandName != "aggregate" || evt.Command.Lookup("aggregate").StringValue() != CollAppointmentOptions {
			t.Fatalf("expected an aggregate on %s, got %s", CollAppointmentOptions, evt.Command)
		}
		first := evt.Command.Lookup("pipeline").Array().Index(0).Value().Document()
		if from := first.Lookup("$lookup", "from").StringValue(); from != CollBookings {
			t.Errorf("first stage must join %s, got %q", CollBookings, from)
		}
		if !strings.Contains(evt.Command.String(), "Nov 3, 2026") {
			t.Error("pipeline must filter bookings by the requested date")
		}
		if !strings.Contains(evt.Command.String(), "$filter") {
			t.Error("pipeline must filter the slots array")
		}
	})
}

func TestMongoStore_FindBookingMissing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("no documents", func(mt *mtest.T) {
		mt.AddMockResponses(emptyCursor(CollBookings))
		b, err := mockStore(mt, false).FindBooking(context.Background(), primitive.NewObjectID())
		if err != nil || b != nil {
			t.Fatalf("expected nil, nil; got %v, %v", b, err)
		}
	})
}

func TestMongoStore_ConfirmPaymentWithCompensation(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("marks the booking paid", func(mt *mtest.T) {
		mt.AddMockResponses(
			emptyCursor(CollPayments),
			countResponse(1),
			mtest.CreateSuccessResponse(),
			updateResponse(1, 1),
		)
		res, err := mockStore(mt, false).ConfirmPayment(ctx, samplePayment(primitive.NewObjectID()))
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if !res.Acknowledged || res.InsertedID == "" {
			t.Errorf("unexpected result %+v", res)
		}
		got := strings.Join(commandNames(mt), ",")
		if got != "find,aggregate,insert,update" {
			t.Errorf("unexpected commands %s", got)
		}
	})

	mt.Run("unknown booking stores nothing", func(mt *mtest.T) {
		mt.AddMockResponses(emptyCursor(CollPayments), countResponse(0))
		_, err := mockStore(mt, false).ConfirmPayment(ctx, samplePayment(primitive.NewObjectID()))
		if !errors.Is(err, models.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
		for _, name := range commandNames(mt) {
			if name == "insert" {
				t.Error("no payment may be inserted for an unknown booking")
			}
		}
	})

	mt.Run("booking vanishing before the update deletes the payment", func(mt *mtest.T) {
		mt.AddMockResponses(
			emptyCursor(CollPayments),
			countResponse(1),
			mtest.CreateSuccessResponse(),
			updateResponse(0, 0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}),
		)
		_, err := mockStore(mt, false).ConfirmPayment(ctx, samplePayment(primitive.NewObjectID()))
		if !errors.Is(err, models.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}

		events := mt.GetAllStartedEvents()
		last := events[len(events)-1]
		if last.CommandName != "delete" || last.Command.Lookup("delete").StringValue() != CollPayments {
			t.Fatalf("expected a compensating delete on %s, got %s", CollPayments, last.Command)
		}
		if !strings.Contains(last.Command.String(), "pi_3Nabc") {
			t.Errorf("compensation must delete by transaction id, got %s", last.Command)
		}
	})

	mt.Run("repeated transaction returns the stored payment", func(mt *mtest.T) {
		existing := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(CollPayments), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: existing},
			{Key: "transactionId", Value: "pi_3Nabc"},
		}))
		res, err := mockStore(mt, false).ConfirmPayment(ctx, samplePayment(primitive.NewObjectID()))
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if res.InsertedID != existing.Hex() {
			t.Errorf("expected %s, got %s", existing.Hex(), res.InsertedID)
		}
		if n := len(mt.GetAllStartedEvents()); n != 1 {
			t.Errorf("expected a single lookup, got %d commands", n)
		}
	})

	mt.Run("concurrent duplicate transaction returns the winner", func(mt *mtest.T) {
		winner := primitive.NewObjectID()
		mt.AddMockResponses(
			emptyCursor(CollPayments),
			countResponse(1),
			duplicateKey,
			mtest.CreateCursorResponse(0, ns(CollPayments), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: winner},
				{Key: "transactionId", Value: "pi_3Nabc"},
			}),
		)
		res, err := mockStore(mt, false).ConfirmPayment(ctx, samplePayment(primitive.NewObjectID()))
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if res.InsertedID != winner.Hex() {
			t.Errorf("expected the winning payment %s, got %s", winner.Hex(), res.InsertedID)
		}
	})

	mt.Run("malformed booking id", func(mt *mtest.T) {
		_, err := mockStore(mt, false).ConfirmPayment(ctx, &models.Payment{BookingID: "nope", TransactionID: "pi_1"})
		if !errors.Is(err, models.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestMongoStore_ConfirmPaymentFallsBackWithoutTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("standalone server", func(mt *mtest.T) {
		store := mockStore(mt, true)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    20,
				Name:    "IllegalOperation",
				Message: "Transaction numbers are only allowed on a replica set member or mongos",
			}),
			// abortTransaction
			mtest.CreateSuccessResponse(),
			emptyCursor(CollPayments),
			countResponse(1),
			mtest.CreateSuccessResponse(),
			updateResponse(1, 1),
		)

		res, err := store.ConfirmPayment(context.Background(), samplePayment(primitive.NewObjectID()))
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if res.InsertedID == "" {
			t.Errorf("unexpected result %+v", res)
		}
		if store.transactions.Load() {
			t.Error("store must stop using transactions after the server rejected them")
		}
	})
}

func TestTransactionsUnsupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"other code", mongoCommandError(11000, "E11000 duplicate key"), false},
		{"standalone", mongoCommandError(20, "Transaction numbers are only allowed on a replica set member or mongos"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transactionsUnsupported(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func mongoCommandError(code int32, msg string) error {
	return fmt.Errorf("find payment: %w", mongo.CommandError{Code: code, Message: msg})
}
