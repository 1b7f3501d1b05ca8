// Package service implements the registration business logic: admission
// with waitlist fallback, cancellation with waitlist promotion, and the
// organizer status override.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/afif-main/event-campus/internal/auth"
	"github.com/afif-main/event-campus/internal/model"
	"github.com/afif-main/event-campus/internal/store"
)

// RegistrationService orchestrates all registration operations. It holds
// no state of its own; every decision is recomputed from the store.
type RegistrationService struct {
	store store.Store
	now   func() time.Time
}

// Option customizes a RegistrationService.
type Option func(*RegistrationService)

// WithClock overrides the wall clock, for deadline tests.
func WithClock(now func() time.Time) Option {
	return func(s *RegistrationService) { s.now = now }
}

// New constructs a RegistrationService.
func New(st store.Store, opts ...Option) *RegistrationService {
	s := &RegistrationService{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdmitResult is the outcome of a registration attempt.
type AdmitResult struct {
	Registration *model.Registration
	// Waitlisted is set when the event was at capacity and the
	// registrant was queued instead of confirmed.
	Waitlisted bool
	// Reactivated is set when a previously cancelled registration was
	// reused instead of a new row being created.
	Reactivated bool
}

// Register admits a user to an event, waitlisting when the event is at
// capacity. A storage-level conflict means a concurrent request won the
// race for the same pair or seat; the decision is retried once so the
// loser observes the winner's effect instead of failing spuriously.
func (s *RegistrationService) Register(ctx context.Context, userID, eventID string) (*AdmitResult, error) {
	res, err := s.admit(ctx, userID, eventID)
	if errors.Is(err, store.ErrConcurrencyConflict) {
		res, err = s.admit(ctx, userID, eventID)
	}
	return res, err
}

func (s *RegistrationService) admit(ctx context.Context, userID, eventID string) (*AdmitResult, error) {
	var res AdmitResult
	err := s.store.WithEventLock(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		if ev.RegistrationDeadline != nil && s.now().After(*ev.RegistrationDeadline) {
			return store.ErrDeadlinePassed
		}

		existing, err := tx.FindByUserAndEvent(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != model.StatusCancelled {
			return store.ErrAlreadyRegistered
		}

		status := model.StatusConfirmed
		if ev.Capacity != nil {
			confirmed, err := tx.CountConfirmed(ctx, eventID)
			if err != nil {
				return err
			}
			if confirmed >= *ev.Capacity {
				status = model.StatusWaitlisted
			}
		}

		if existing != nil {
			// Re-registration after cancelling reuses the row; the
			// original registration date keeps its waitlist position.
			existing.Status = status
			if err := tx.Update(ctx, existing); err != nil {
				return err
			}
			res = AdmitResult{Registration: existing, Reactivated: true}
		} else {
			reg := &model.Registration{
				ID:               uuid.New().String(),
				UserID:           userID,
				EventID:          eventID,
				Status:           status,
				RegistrationDate: s.now().UTC(),
			}
			if err := tx.Create(ctx, reg); err != nil {
				return err
			}
			res = AdmitResult{Registration: reg}
		}
		res.Waitlisted = status == model.StatusWaitlisted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Cancel marks the user's registration cancelled. When a confirmed seat
// was vacated, the earliest-waitlisted registration for the event is
// promoted to confirmed under the same event lock, so promotion cannot
// race a concurrent admission into overbooking.
func (s *RegistrationService) Cancel(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	var cancelled *model.Registration
	err := s.store.WithEventLock(ctx, eventID, func(tx store.Tx, ev *model.Event) error {
		reg, err := tx.FindByUserAndEvent(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if reg == nil {
			return store.ErrNotFound
		}

		wasConfirmed := reg.Status == model.StatusConfirmed
		reg.Status = model.StatusCancelled
		if err := tx.Update(ctx, reg); err != nil {
			return err
		}
		cancelled = reg

		// Only a vacated confirmed seat frees room on the event;
		// cancelling a waitlisted or already-cancelled registration
		// promotes nobody.
		if !wasConfirmed {
			return nil
		}
		next, err := tx.EarliestWaitlisted(ctx, eventID)
		if err != nil {
			return err
		}
		if next == nil {
			// Empty waitlist is a normal outcome, not an error.
			return nil
		}
		next.Status = model.StatusConfirmed
		return tx.Update(ctx, next)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// SetStatus is the organizer override: a direct status overwrite that
// deliberately skips the capacity check and the promotion trigger.
// Forcing confirmed on a full event is allowed but logged, so operators
// can see when the override pushed an event past capacity.
func (s *RegistrationService) SetStatus(ctx context.Context, actor auth.Identity, registrationID string, newStatus string) (*model.Registration, error) {
	status := model.Status(newStatus)
	if !status.Valid() {
		return nil, store.ErrInvalidStatus
	}

	_, ev, err := s.store.FindRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(actor, ev); err != nil {
		return nil, err
	}

	var updated *model.Registration
	err = s.store.WithEventLock(ctx, ev.ID, func(tx store.Tx, ev *model.Event) error {
		reg, err := tx.FindByID(ctx, registrationID)
		if err != nil {
			return err
		}
		reg.Status = status
		if err := tx.Update(ctx, reg); err != nil {
			return err
		}
		updated = reg

		if status == model.StatusConfirmed && ev.Capacity != nil {
			confirmed, err := tx.CountConfirmed(ctx, ev.ID)
			if err != nil {
				return err
			}
			if confirmed > *ev.Capacity {
				log.Printf("registration %s: manual confirm pushed event %s to %d/%d confirmed",
					reg.ID, ev.ID, confirmed, *ev.Capacity)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RegistrationsForEvent lists an event's registrations in waitlist
// order. Restricted to the event's organizer or an administrator.
func (s *RegistrationService) RegistrationsForEvent(ctx context.Context, actor auth.Identity, eventID string) ([]model.Registration, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(actor, ev); err != nil {
		return nil, err
	}
	return s.store.ListByEvent(ctx, eventID)
}

// RegistrationsForUser lists the caller's registrations, newest first.
func (s *RegistrationService) RegistrationsForUser(ctx context.Context, userID string) ([]model.Registration, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return s.store.ListByUser(ctx, userID)
}

// authorizeOrganizer rejects callers that are neither the event's
// organizer nor an admin. An event with no recorded organizer is
// treated as owned by nobody rather than everybody.
func authorizeOrganizer(actor auth.Identity, ev *model.Event) error {
	if actor.IsAdmin() {
		return nil
	}
	if ev.OrganizerID == "" || ev.OrganizerID != actor.ID {
		return store.ErrUnauthorized
	}
	return nil
}
