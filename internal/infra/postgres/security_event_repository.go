package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

// SecurityEventRepository implements app.SecurityEventRepository using
// PostgreSQL. The security_events table is append-only: this repository
// exposes no update or delete.
type SecurityEventRepository struct {
	db *DB
}

// NewSecurityEventRepository creates a new SecurityEventRepository.
func NewSecurityEventRepository(db *DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Insert persists a security event.
func (r *SecurityEventRepository) Insert(ctx context.Context, event secevent.Event) error {
	query := `
		INSERT INTO security_events (id, occurred_at, source_ip, user_agent, action, details, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var userID any
	if event.UserID != nil {
		userID = *event.UserID
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID.String(),
		event.Timestamp,
		event.SourceIP,
		nullString(event.UserAgent),
		event.Action.String(),
		nullString(event.Details),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// CountRecent counts events of the given kinds from a source IP since
// the given time.
func (r *SecurityEventRepository) CountRecent(ctx context.Context, sourceIP string, kinds []secevent.Kind, since time.Time) (int, error) {
	kindStrs := make([]string, 0, len(kinds))
	for _, k := range kinds {
		kindStrs = append(kindStrs, k.String())
	}

	query := `
		SELECT COUNT(*)
		FROM security_events
		WHERE source_ip = $1 AND action = ANY($2) AND occurred_at >= $3
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, sourceIP, pq.Array(kindStrs), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}
	return count, nil
}

// List returns a page of events matching the filter, newest first.
func (r *SecurityEventRepository) List(ctx context.Context, filter app.EventFilter, p pagination.Pagination) ([]secevent.Event, int64, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argPos := 1

	if filter.SourceIP != "" {
		conditions = append(conditions, fmt.Sprintf("source_ip = $%d", argPos))
		args = append(args, filter.SourceIP)
		argPos++
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argPos))
		args = append(args, filter.Kind.String())
		argPos++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argPos))
		args = append(args, filter.Since)
		argPos++
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", argPos))
		args = append(args, filter.Until)
		argPos++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM security_events WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count security events: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, occurred_at, source_ip, user_agent, action, details, user_id
		FROM security_events
		WHERE %s
		ORDER BY occurred_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, p.Limit(), p.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	events := make([]secevent.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate security events: %w", err)
	}

	return events, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (secevent.Event, error) {
	var (
		event     secevent.Event
		userAgent, details, userID *string
		action    string
	)

	err := row.Scan(
		&event.ID,
		&event.Timestamp,
		&event.SourceIP,
		&userAgent,
		&action,
		&details,
		&userID,
	)
	if err != nil {
		return secevent.Event{}, fmt.Errorf("failed to scan security event: %w", err)
	}

	event.Action = secevent.Kind(action)
	if userAgent != nil {
		event.UserAgent = *userAgent
	}
	if details != nil {
		event.Details = *details
	}
	event.UserID = userID

	return event, nil
}
