package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Roles form a closed set validated at the auth boundary. Nothing
// downstream re-normalizes casing.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// UserRef is the slice of a user record attached to responses for
// display (feedback authors, event organizers).
type UserRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}
