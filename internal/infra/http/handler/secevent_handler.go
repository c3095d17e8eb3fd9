package handler

import (
	"net/http"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
)

// SecurityEventHandler exposes the audit trail to administrators.
// The event log is append-only; this handler is read-only.
type SecurityEventHandler struct {
	events *app.SecurityEventService
	logger *logger.Logger
}

// NewSecurityEventHandler creates a new SecurityEventHandler.
func NewSecurityEventHandler(events *app.SecurityEventService, log *logger.Logger) *SecurityEventHandler {
	return &SecurityEventHandler{
		events: events,
		logger: log,
	}
}

// SecurityEventResponse represents one audit record.
type SecurityEventResponse struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	SourceIP   string    `json:"source_ip"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
}

// List handles GET /api/v1/security-events
func (h *SecurityEventHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := app.EventFilter{
		SourceIP: query.Get("source_ip"),
	}

	if k := query.Get("kind"); k != "" {
		kind := secevent.Kind(k)
		if !kind.IsValid() {
			writeError(w, r, apierror.BadRequest("Invalid event kind"))
			return
		}
		filter.Kind = kind
	}
	if s := query.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, r, apierror.BadRequest("Invalid since timestamp, expected RFC 3339"))
			return
		}
		filter.Since = since
	}
	if u := query.Get("until"); u != "" {
		until, err := time.Parse(time.RFC3339, u)
		if err != nil {
			writeError(w, r, apierror.BadRequest("Invalid until timestamp, expected RFC 3339"))
			return
		}
		filter.Until = until
	}

	result, err := h.events.List(r.Context(), filter, parsePagination(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	events := make([]SecurityEventResponse, 0, len(result.Data))
	for _, event := range result.Data {
		resp := SecurityEventResponse{
			ID:         event.ID.String(),
			OccurredAt: event.Timestamp,
			SourceIP:   event.SourceIP,
			UserAgent:  event.UserAgent,
			Action:     event.Action.String(),
			Details:    event.Details,
		}
		if event.UserID != nil {
			resp.UserID = *event.UserID
		}
		events = append(events, resp)
	}

	writeJSON(w, http.StatusOK, ListResponse[SecurityEventResponse]{
		Data:       events,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
	})
}
