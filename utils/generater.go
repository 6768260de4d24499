package utils

import "github.com/google/uuid"

// GenerateRequestID returns a random request identifier.
func GenerateRequestID() string {
	return uuid.NewString()
}
