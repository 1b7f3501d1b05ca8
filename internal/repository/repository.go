// Package repository implements the registration store on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afif-main/event-campus/internal/model"
	"github.com/afif-main/event-campus/internal/store"
)

// uniqueViolation is the PostgreSQL error code raised when the partial
// unique index on (user_id, event_id) rejects a duplicate live row.
const uniqueViolation = "23505"

// Store implements store.Store on a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

// New constructs a Store.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetEvent returns a single event snapshot or store.ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(s.db.QueryRow(ctx,
		`SELECT id, title, capacity, registration_deadline, organizer_id, created_at
		 FROM events WHERE id = $1`,
		id,
	))
}

// WithEventLock serializes concurrent registration work for one event.
//
// The admission decision is a read-then-write: count confirmed rows,
// then insert or update. Two transactions doing that concurrently near
// the capacity boundary would both see a free seat and both confirm.
// SELECT ... FOR UPDATE on the event row takes a row-level exclusive
// lock for the duration of the transaction, so the second caller blocks
// until the first commits and then observes its effect. Registrations
// for different events lock different rows and never contend.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(tx store.Tx, ev *model.Event) error) error {
	pgTx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback is a no-op once the transaction has committed.
	defer func() { _ = pgTx.Rollback(ctx) }()

	ev, err := scanEvent(pgTx.QueryRow(ctx,
		`SELECT id, title, capacity, registration_deadline, organizer_id, created_at
		 FROM events WHERE id = $1
		 FOR UPDATE`,
		eventID,
	))
	if err != nil {
		return err
	}

	if err := fn(&tx{tx: pgTx}, ev); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindRegistration returns a registration together with its event
// snapshot, or store.ErrNotFound.
func (s *Store) FindRegistration(ctx context.Context, id string) (*model.Registration, *model.Event, error) {
	var (
		reg model.Registration
		ev  model.Event
	)
	err := s.db.QueryRow(ctx,
		`SELECT r.id, r.user_id, r.event_id, r.status, r.registration_date,
		        e.id, e.title, e.capacity, e.registration_deadline, e.organizer_id, e.created_at
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.id = $1`,
		id,
	).Scan(
		&reg.ID, &reg.UserID, &reg.EventID, &reg.Status, &reg.RegistrationDate,
		&ev.ID, &ev.Title, &ev.Capacity, &ev.RegistrationDeadline, &ev.OrganizerID, &ev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, &ev, nil
}

// ListByEvent returns registrations in waitlist order (earliest first).
func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.list(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY registration_date ASC`,
		eventID,
	)
}

// ListByUser returns a user's registrations, most recent first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	return s.list(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations
		 WHERE user_id = $1
		 ORDER BY registration_date DESC`,
		userID,
	)
}

func (s *Store) list(ctx context.Context, query, arg string) ([]model.Registration, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.Status, &reg.RegistrationDate); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// tx implements store.Tx on an open pgx transaction.
type tx struct {
	tx pgx.Tx
}

func (t *tx) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations
		 WHERE user_id = $1 AND event_id = $2
		 ORDER BY (status <> 'cancelled') DESC, registration_date DESC
		 LIMIT 1`,
		userID, eventID,
	))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return reg, err
}

func (t *tx) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	return scanRegistration(t.tx.QueryRow(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations WHERE id = $1`,
		id,
	))
}

func (t *tx) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = 'confirmed'`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", err)
	}
	return n, nil
}

func (t *tx) EarliestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations
		 WHERE event_id = $1 AND status = 'waitlisted'
		 ORDER BY registration_date ASC
		 LIMIT 1`,
		eventID,
	))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return reg, err
}

func (t *tx) Create(ctx context.Context, reg *model.Registration) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, event_id, status, registration_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.UserID, reg.EventID, reg.Status, reg.RegistrationDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConcurrencyConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *tx) Update(ctx context.Context, reg *model.Registration) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE registrations SET status = $2 WHERE id = $1`,
		reg.ID, reg.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConcurrencyConflict
		}
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Capacity, &ev.RegistrationDeadline, &ev.OrganizerID, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &ev, nil
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.Status, &reg.RegistrationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return &reg, nil
}
