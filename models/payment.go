package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment records a successful charge. Payments are never updated; transactionId is unique.
type Payment struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty" form:"-"`
	BookingID     string             `json:"bookingId" bson:"bookingId" form:"bookingId" validate:"required,mongodb"`
	TransactionID string             `json:"transactionId" bson:"transactionId" form:"transactionId" validate:"required"`
	Price         float64            `json:"price" bson:"price" form:"price" validate:"gte=0"`
	Email         string             `json:"email,omitempty" bson:"email,omitempty" form:"email" validate:"omitempty,email"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt" form:"-"`
}

// PaymentIntentRequest is the body of /create-payment-intent.
type PaymentIntentRequest struct {
	Price float64 `json:"price" form:"price" validate:"gt=0"`
}
