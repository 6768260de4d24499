package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Doctor struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty" form:"-"`
	Name      string             `json:"name" bson:"name" form:"name" validate:"required"`
	Email     string             `json:"email" bson:"email" form:"email" validate:"required,email"`
	Specialty string             `json:"specialty" bson:"specialty" form:"specialty" validate:"required"`
	Image     string             `json:"img,omitempty" bson:"img,omitempty" form:"img"`
	Slots     []string           `json:"slots,omitempty" bson:"slots,omitempty" form:"slots"`
}
