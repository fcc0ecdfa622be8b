package service

import (
	"fmt"

	"roombook/internal/database"
)

var (
	// ErrSlotConflict means the requested interval overlaps an active booking on the room.
	ErrSlotConflict = database.ErrSlotConflict
	// ErrRoomNotFound means the referenced room does not exist.
	ErrRoomNotFound = database.ErrRoomNotFound
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func missingField(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}
