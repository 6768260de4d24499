package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name  string             `json:"name,omitempty" bson:"name,omitempty"`
	Email string             `json:"email" bson:"email"`
	Role  Role               `json:"role,omitempty" bson:"role,omitempty"`
}

// IsAdmin is the authorization predicate shared by every admin check.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
