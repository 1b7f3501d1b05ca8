// Package store declares the persistence interface for registrations
// and the domain error taxonomy shared by its implementations.
package store

import (
	"context"
	"errors"

	"github.com/afif-main/event-campus/internal/model"
)

// ErrNotFound is returned when a requested event or registration does not exist.
var ErrNotFound = errors.New("not found")

// ErrDeadlinePassed is returned when registration is attempted after the
// event's registration deadline.
var ErrDeadlinePassed = errors.New("registration deadline has passed")

// ErrAlreadyRegistered is returned when a non-cancelled registration
// already exists for the (user, event) pair.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrInvalidStatus is returned when a status update names an unknown state.
var ErrInvalidStatus = errors.New("invalid status")

// ErrUnauthorized is returned when the caller is neither the event's
// organizer nor an administrator.
var ErrUnauthorized = errors.New("not authorized")

// ErrConcurrencyConflict is returned when the storage layer rejects a
// write because a concurrent request won the race (unique-constraint
// violation or serialization failure). Callers retry the decision once.
var ErrConcurrencyConflict = errors.New("concurrent registration conflict")

// Tx is the transactional view handed to an event-locked callback.
// All reads and writes performed through it happen inside one
// transaction, strictly ordered against other callbacks for the same
// event.
type Tx interface {
	// FindByUserAndEvent returns the registration for the pair, or
	// (nil, nil) if none exists.
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Registration, error)

	// FindByID returns a registration by its primary key, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Registration, error)

	// CountConfirmed returns the number of confirmed registrations for
	// the event.
	CountConfirmed(ctx context.Context, eventID string) (int, error)

	// EarliestWaitlisted returns the waitlisted registration for the
	// event with the earliest registration date, or (nil, nil) if the
	// waitlist is empty.
	EarliestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error)

	// Create inserts a new registration. A duplicate non-cancelled row
	// for the same (user, event) pair fails with ErrConcurrencyConflict.
	Create(ctx context.Context, reg *model.Registration) error

	// Update persists a changed registration.
	Update(ctx context.Context, reg *model.Registration) error
}

// Store is the registration store. It is the sole owner of registration
// rows; the service layer holds no state of its own.
type Store interface {
	// GetEvent returns the event snapshot, or ErrNotFound.
	GetEvent(ctx context.Context, id string) (*model.Event, error)

	// WithEventLock runs fn inside a transaction that holds an
	// exclusive per-event lock for the whole callback, and passes in
	// the event snapshot read under that lock. Two concurrent calls
	// for the same event are strictly serialized; calls for different
	// events do not contend. The transaction commits iff fn returns nil.
	WithEventLock(ctx context.Context, eventID string, fn func(tx Tx, ev *model.Event) error) error

	// FindRegistration returns a registration and the snapshot of its
	// event, or ErrNotFound.
	FindRegistration(ctx context.Context, id string) (*model.Registration, *model.Event, error)

	// ListByEvent returns all registrations for an event ordered by
	// registration date ascending (waitlist order).
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)

	// ListByUser returns all registrations for a user ordered by
	// registration date descending (most recent first).
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
}
