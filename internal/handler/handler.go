// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/afif-main/event-campus/internal/auth"
	"github.com/afif-main/event-campus/internal/model"
	"github.com/afif-main/event-campus/internal/service"
	"github.com/afif-main/event-campus/internal/store"
)

// waitlistNotice is returned alongside a registration that landed on the
// waitlist so clients can render a distinct message.
const waitlistNotice = "Event is at capacity. You have been added to the waitlist."

// RegistrationHandler holds all HTTP handlers for the registration API.
type RegistrationHandler struct {
	svc      *service.RegistrationService
	validate *validator.Validate
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Routes mounts the registration API. Every route requires an
// authenticated caller.
func (h *RegistrationHandler) Routes(r chi.Router) {
	r.Post("/{eventID}", h.Register)
	r.Delete("/{eventID}", h.Cancel)
	r.Put("/{registrationID}", h.UpdateStatus)
	r.Get("/event/{eventID}", h.ListForEvent)
	r.Get("/my", h.ListMine)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps the store error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDeadlinePassed):
		writeError(w, http.StatusBadRequest, "registration deadline has passed")
	case errors.Is(err, store.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "already registered for this event")
	case errors.Is(err, store.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, store.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, store.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "registration conflict, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Register handles POST /registrations/{eventID}
// Admits the authenticated user to the event, waitlisting when full.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	eventID := chi.URLParam(r, "eventID")

	res, err := h.svc.Register(r.Context(), caller.ID, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := model.RegistrationResponse{Registration: *res.Registration}
	if res.Waitlisted {
		resp.Message = waitlistNotice
	}
	status := http.StatusCreated
	if res.Reactivated {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// Cancel handles DELETE /registrations/{eventID}
// Cancels the authenticated user's registration; a freed confirmed seat
// promotes the earliest waitlisted registrant.
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	eventID := chi.URLParam(r, "eventID")

	reg, err := h.svc.Cancel(r.Context(), caller.ID, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// UpdateStatus handles PUT /registrations/{registrationID}
// Organizer/admin override of a registration's status.
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	registrationID := chi.URLParam(r, "registrationID")

	var req model.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	reg, err := h.svc.SetStatus(r.Context(), caller, registrationID, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ListForEvent handles GET /registrations/event/{eventID}
// Returns registrations in waitlist order; organizer/admin only.
func (h *RegistrationHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	eventID := chi.URLParam(r, "eventID")

	regs, err := h.svc.RegistrationsForEvent(r.Context(), caller, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListMine handles GET /registrations/my
// Returns the caller's registrations, most recent first.
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	regs, err := h.svc.RegistrationsForUser(r.Context(), caller.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
