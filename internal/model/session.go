package model

import "time"

// Session живое занятие по бронированию
type Session struct {
	ID              int64      `json:"id"`
	BookingID       int64      `json:"booking_id"`
	RoomID          string     `json:"room_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	CreatedAt       time.Time  `json:"created_at"`
}
