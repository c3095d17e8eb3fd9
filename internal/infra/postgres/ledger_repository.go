package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/pkg/domain/ledger"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

// LedgerRepository implements app.LedgerRepository using PostgreSQL.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert persists a new ledger entry.
func (r *LedgerRepository) Insert(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, entry_type, category, description, amount_cents, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID.String(),
		e.UserID.String(),
		e.Type.String(),
		e.Category,
		nullString(e.Description),
		e.AmountCents,
		e.OccurredAt,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// FindByID returns the entry with the given id.
func (r *LedgerRepository) FindByID(ctx context.Context, id shared.ID) (*ledger.Entry, error) {
	query := `
		SELECT id, user_id, entry_type, category, description, amount_cents, occurred_at, created_at, updated_at
		FROM ledger_entries
		WHERE id = $1
	`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %s: %w", id.String(), shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entry: %w", err)
	}
	return e, nil
}

// Update replaces the mutable fields of an entry.
func (r *LedgerRepository) Update(ctx context.Context, e *ledger.Entry) error {
	query := `
		UPDATE ledger_entries
		SET entry_type = $2, category = $3, description = $4, amount_cents = $5, occurred_at = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		e.ID.String(),
		e.Type.String(),
		e.Category,
		nullString(e.Description),
		e.AmountCents,
		e.OccurredAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ledger entry %s: %w", e.ID.String(), shared.ErrNotFound)
	}
	return nil
}

// Delete removes an entry.
func (r *LedgerRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ledger entry %s: %w", id.String(), shared.ErrNotFound)
	}
	return nil
}

// ListByUser returns a page of the user's entries, newest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID shared.ID, filter app.EntryFilter, p pagination.Pagination) ([]ledger.Entry, int64, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID.String()}
	argPos := 2

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("entry_type = $%d", argPos))
		args = append(args, filter.Type.String())
		argPos++
	}
	if !filter.Month.IsZero() {
		monthStart := filter.Month
		monthEnd := monthStart.AddDate(0, 1, 0)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d AND occurred_at < $%d", argPos, argPos+1))
		args = append(args, monthStart, monthEnd)
		argPos += 2
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM ledger_entries WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, entry_type, category, description, amount_cents, occurred_at, created_at, updated_at
		FROM ledger_entries
		WHERE %s
		ORDER BY occurred_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, p.Limit(), p.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]ledger.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, total, nil
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var e ledger.Entry
	var entryType string
	var description *string

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&entryType,
		&e.Category,
		&description,
		&e.AmountCents,
		&e.OccurredAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = ledger.EntryType(entryType)
	if description != nil {
		e.Description = *description
	}
	return &e, nil
}
