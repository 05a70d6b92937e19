package shared

import "github.com/google/uuid"

// NewID returns a random resource identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed resource identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
