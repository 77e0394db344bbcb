package models

import "time"

// Appointment is a scheduled visit (measure, fitting, service call)
// for a project.
type Appointment struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ProjectID int       `json:"project_id"`
	ClientID  int       `json:"client_id"`
	Kind      string    `json:"kind"`
	Notes     string    `json:"notes"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	AppointmentStatusBooked    = "booked"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)
