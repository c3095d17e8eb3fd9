package app

import (
	"context"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

// SecurityEventRepository persists security events.
type SecurityEventRepository interface {
	Insert(ctx context.Context, event secevent.Event) error
	CountRecent(ctx context.Context, sourceIP string, kinds []secevent.Kind, since time.Time) (int, error)
	List(ctx context.Context, filter EventFilter, p pagination.Pagination) ([]secevent.Event, int64, error)
}

// EventFilter narrows event listings.
type EventFilter struct {
	SourceIP string
	Kind     secevent.Kind
	Since    time.Time
	Until    time.Time
}

// writeTimeout bounds how long a single event write may take once it
// has been detached from the request.
const writeTimeout = 5 * time.Second

// SecurityEventService is the append-only security event log. Writes
// are fire-and-forget: a failing store is reported to the operational
// log and metrics, never to the caller, so logging failures cannot slow
// or abort legitimate traffic.
type SecurityEventService struct {
	repo SecurityEventRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewSecurityEventService creates the event log service.
func NewSecurityEventService(repo SecurityEventRepository, log *logger.Logger) *SecurityEventService {
	return &SecurityEventService{
		repo: repo,
		log:  log.With("service", "security_event"),
		now:  time.Now,
	}
}

// Record appends an event without blocking the caller. The write runs
// on its own goroutine with a detached context: a client abandoning the
// request mid-pipeline must not truncate the audit trail.
func (s *SecurityEventService) Record(event secevent.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	metrics.SecurityEventsTotal.WithLabelValues(event.Action.String()).Inc()

	s.log.Info("security event",
		"kind", event.Action.String(),
		"source_ip", event.SourceIP,
		"details", event.Details,
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.repo.Insert(ctx, event); err != nil {
			s.log.Error("failed to persist security event",
				"kind", event.Action.String(),
				"error", err,
			)
		}
	}()
}

// CountRecent returns how many events of the given kinds the source IP
// produced since the given time. Used by the suspicion detector.
func (s *SecurityEventService) CountRecent(ctx context.Context, sourceIP string, kinds []secevent.Kind, since time.Time) (int, error) {
	return s.repo.CountRecent(ctx, sourceIP, kinds, since)
}

// List returns a page of events matching the filter, newest first.
func (s *SecurityEventService) List(ctx context.Context, filter EventFilter, p pagination.Pagination) (*pagination.Result[secevent.Event], error) {
	events, total, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return nil, err
	}
	result := pagination.NewResult(events, total, p)
	return &result, nil
}
