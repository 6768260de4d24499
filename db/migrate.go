package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func portalIndexes() []collectionIndexes {
	return []collectionIndexes{
		{CollBookings, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}, {Key: "appointmentDate", Value: 1}, {Key: "treatment", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_email_date_treatment"),
			},
			{
				Keys:    bson.D{{Key: "appointmentDate", Value: 1}},
				Options: options.Index().SetName("appointment_date"),
			},
		}},
		{CollUsers, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		}},
		{CollPayments, []mongo.IndexModel{
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_transaction")},
		}},
		{CollAppointmentOptions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_name")},
		}},
	}
}

// Migrate creates the indexes the store relies on. It is safe to run repeatedly.
func (s *MongoStore) Migrate(ctx context.Context) error {
	for _, ci := range portalIndexes() {
		names, err := s.db.Collection(ci.collection).Indexes().CreateMany(ctx, ci.models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", ci.collection, err)
		}
		s.log.Info().Str("collection", ci.collection).Strs("indexes", names).Msg("indexes ensured")
	}
	return nil
}
