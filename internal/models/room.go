package models

import "time"

// Room is a bookable study room.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Floor     int       `json:"floor"`
	Capacity  int       `json:"capacity"`
	Equipment string    `json:"equipment,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
