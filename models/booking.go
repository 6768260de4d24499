package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Booking struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty" form:"-"`
	Email           string             `json:"email" bson:"email" form:"email" validate:"required,email"`
	AppointmentDate string             `json:"appointmentDate" bson:"appointmentDate" form:"appointmentDate" validate:"required"`
	Treatment       string             `json:"treatment" bson:"treatment" form:"treatment" validate:"required"`
	Patient         string             `json:"patient,omitempty" bson:"patient,omitempty" form:"patient"`
	Phone           string             `json:"phone,omitempty" bson:"phone,omitempty" form:"phone"`
	Slot            string             `json:"slot" bson:"slot" form:"slot" validate:"required"`
	Price           float64            `json:"price" bson:"price" form:"price" validate:"gte=0"`
	Paid            bool               `json:"paid" bson:"paid" form:"-"`
	TransactionID   string             `json:"transactionId,omitempty" bson:"transactionId,omitempty" form:"-"`
}

// SameAppointment reports whether b and other share the (email, date, treatment) key
// under which at most one booking may exist.
func (b *Booking) SameAppointment(other *Booking) bool {
	return b.Email == other.Email &&
		b.AppointmentDate == other.AppointmentDate &&
		b.Treatment == other.Treatment
}
