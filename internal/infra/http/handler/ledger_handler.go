package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/middleware"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/ledger"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/validator"
)

// LedgerHandler handles HTTP requests for financial records.
type LedgerHandler struct {
	service   *app.LedgerService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc *app.LedgerService, v *validator.Validator, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// --- Request/Response Types ---

// EntryRequest creates or replaces a ledger entry.
type EntryRequest struct {
	Type        string    `json:"type" validate:"required,entry_type"`
	Category    string    `json:"category" validate:"required,min=1,max=128"`
	Description string    `json:"description" validate:"max=1000"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	OccurredAt  time.Time `json:"occurred_at" validate:"required"`
}

// EntryResponse represents a ledger entry in responses.
type EntryResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEntryResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID.String(),
		Type:        e.Type.String(),
		Category:    e.Category,
		Description: e.Description,
		AmountCents: e.AmountCents,
		OccurredAt:  e.OccurredAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// --- Handlers ---

// Create handles POST /api/v1/entries
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	entry := &ledger.Entry{
		UserID:      userID,
		Type:        ledger.EntryType(req.Type),
		Category:    req.Category,
		Description: req.Description,
		AmountCents: req.AmountCents,
		OccurredAt:  req.OccurredAt,
	}

	created, err := h.service.Create(r.Context(), entry)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryResponse(created))
}

// Get handles GET /api/v1/entries/{id}
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apierror.BadRequest("Invalid entry ID"))
		return
	}

	entry, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// Update handles PUT /api/v1/entries/{id}
func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apierror.BadRequest("Invalid entry ID"))
		return
	}

	var req EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	entry := &ledger.Entry{
		ID:          id,
		UserID:      userID,
		Type:        ledger.EntryType(req.Type),
		Category:    req.Category,
		Description: req.Description,
		AmountCents: req.AmountCents,
		OccurredAt:  req.OccurredAt,
	}

	updated, err := h.service.Update(r.Context(), userID, entry)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(updated))
}

// Delete handles DELETE /api/v1/entries/{id}
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apierror.BadRequest("Invalid entry ID"))
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/entries
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := app.EntryFilter{}

	if t := query.Get("type"); t != "" {
		filter.Type = ledger.EntryType(t)
		if !filter.Type.IsValid() {
			writeError(w, r, apierror.BadRequest("Invalid entry type"))
			return
		}
	}
	if m := query.Get("month"); m != "" {
		month, err := time.Parse("2006-01", m)
		if err != nil {
			writeError(w, r, apierror.BadRequest("Invalid month, expected YYYY-MM"))
			return
		}
		filter.Month = month
	}

	result, err := h.service.List(r.Context(), userID, filter, parsePagination(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entries := make([]EntryResponse, 0, len(result.Data))
	for i := range result.Data {
		entries = append(entries, toEntryResponse(&result.Data[i]))
	}

	writeJSON(w, http.StatusOK, ListResponse[EntryResponse]{
		Data:       entries,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
	})
}

func (h *LedgerHandler) currentUser(w http.ResponseWriter, r *http.Request) (shared.ID, bool) {
	raw := middleware.GetUserID(r.Context())
	id, err := shared.IDFromString(raw)
	if err != nil {
		writeError(w, r, apierror.Unauthorized("Authentication required"))
		return shared.ID{}, false
	}
	return id, true
}
