package models

type Role string

const (
	// RoleAdmin is the only role the portal grants. Users without it have no role field.
	RoleAdmin Role = "admin"
)
