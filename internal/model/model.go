// Package model defines the core domain types for the event registration system.
package model

import "time"

// Status is the lifecycle state of a registration.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusWaitlisted Status = "waitlisted"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the recognized registration states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWaitlisted, StatusCancelled:
		return true
	}
	return false
}

// Event is a read-only snapshot of an event as managed by the event
// service. Capacity and RegistrationDeadline are optional: a nil
// Capacity means unlimited seats, a nil RegistrationDeadline means
// registration never closes.
type Event struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Capacity             *int       `json:"capacity"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	OrganizerID          string     `json:"organizer_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Registration ties one user to one event. Registrations are never
// deleted; cancelling sets Status to cancelled and a later
// re-registration reuses the same row.
type Registration struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	EventID          string    `json:"event_id"`
	Status           Status    `json:"status"`
	RegistrationDate time.Time `json:"registration_date"`
}

// UpdateStatusRequest is the payload for the organizer status override.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed waitlisted cancelled"`
}

// RegistrationResponse wraps a registration with an optional
// human-readable notice (set when the registrant lands on the waitlist).
type RegistrationResponse struct {
	Registration
	Message string `json:"message,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
