package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// AppointmentOption is a treatment offered by the portal together with its daily slots.
type AppointmentOption struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id,omitempty" yaml:"-"`
	Name  string             `json:"name" bson:"name" yaml:"name"`
	Price float64            `json:"price" bson:"price" yaml:"price"`
	Slots []string           `json:"slots" bson:"slots" yaml:"slots"`
}

// Specialty is the projection of an option returned by /appointmentSpecialty.
type Specialty struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
}
