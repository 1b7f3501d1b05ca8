// Package memory implements the registration store in process memory.
// It mirrors the PostgreSQL implementation's locking semantics with a
// per-event mutex and is used by tests and local experiments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/afif-main/event-campus/internal/model"
	"github.com/afif-main/event-campus/internal/store"
)

// Store implements store.Store backed by maps.
type Store struct {
	mu     sync.Mutex
	events map[string]model.Event
	regs   map[string]model.Registration
	locks  map[string]*sync.Mutex
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		events: make(map[string]model.Event),
		regs:   make(map[string]model.Registration),
		locks:  make(map[string]*sync.Mutex),
	}
}

// AddEvent registers an event snapshot. The store treats events as
// read-only; this is the stand-in for the external event service.
func (s *Store) AddEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev
	if _, ok := s.locks[ev.ID]; !ok {
		s.locks[ev.ID] = &sync.Mutex{}
	}
}

// GetEvent returns the event snapshot, or store.ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ev, nil
}

// WithEventLock serializes callbacks per event with a dedicated mutex,
// matching the row-lock behavior of the PostgreSQL store.
func (s *Store) WithEventLock(ctx context.Context, eventID string, fn func(tx store.Tx, ev *model.Event) error) error {
	s.mu.Lock()
	ev, ok := s.events[eventID]
	lock := s.locks[eventID]
	s.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()
	return fn(&tx{s: s}, &ev)
}

// FindRegistration returns a registration and its event snapshot.
func (s *Store) FindRegistration(ctx context.Context, id string) (*model.Registration, *model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	ev, ok := s.events[reg.EventID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	return &reg, &ev, nil
}

// ListByEvent returns registrations ordered by registration date ascending.
func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	regs := s.collect(func(r model.Registration) bool { return r.EventID == eventID })
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegistrationDate.Before(regs[j].RegistrationDate)
	})
	return regs, nil
}

// ListByUser returns a user's registrations, most recent first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	regs := s.collect(func(r model.Registration) bool { return r.UserID == userID })
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegistrationDate.After(regs[j].RegistrationDate)
	})
	return regs, nil
}

func (s *Store) collect(keep func(model.Registration) bool) []model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var regs []model.Registration
	for _, r := range s.regs {
		if keep(r) {
			regs = append(regs, r)
		}
	}
	return regs
}

// tx implements store.Tx; the caller holds the event lock for its lifetime.
type tx struct {
	s *Store
}

func (t *tx) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var found *model.Registration
	for _, r := range t.s.regs {
		if r.UserID != userID || r.EventID != eventID {
			continue
		}
		// A live row always wins over a cancelled one.
		if found == nil || (found.Status == model.StatusCancelled && r.Status != model.StatusCancelled) {
			reg := r
			found = &reg
		}
	}
	return found, nil
}

func (t *tx) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	reg, ok := t.s.regs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &reg, nil
}

func (t *tx) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	n := 0
	for _, r := range t.s.regs {
		if r.EventID == eventID && r.Status == model.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (t *tx) EarliestWaitlisted(ctx context.Context, eventID string) (*model.Registration, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var earliest *model.Registration
	for _, r := range t.s.regs {
		if r.EventID != eventID || r.Status != model.StatusWaitlisted {
			continue
		}
		if earliest == nil ||
			r.RegistrationDate.Before(earliest.RegistrationDate) ||
			(r.RegistrationDate.Equal(earliest.RegistrationDate) && r.ID < earliest.ID) {
			reg := r
			earliest = &reg
		}
	}
	return earliest, nil
}

func (t *tx) Create(ctx context.Context, reg *model.Registration) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	// Enforce the same partial uniqueness the database index provides.
	for _, r := range t.s.regs {
		if r.UserID == reg.UserID && r.EventID == reg.EventID && r.Status != model.StatusCancelled {
			return store.ErrConcurrencyConflict
		}
	}
	t.s.regs[reg.ID] = *reg
	return nil
}

func (t *tx) Update(ctx context.Context, reg *model.Registration) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	existing, ok := t.s.regs[reg.ID]
	if !ok {
		return store.ErrNotFound
	}
	if reg.Status != model.StatusCancelled && existing.Status == model.StatusCancelled {
		for _, r := range t.s.regs {
			if r.ID != reg.ID && r.UserID == reg.UserID && r.EventID == reg.EventID && r.Status != model.StatusCancelled {
				return store.ErrConcurrencyConflict
			}
		}
	}
	existing.Status = reg.Status
	t.s.regs[reg.ID] = existing
	return nil
}
