// Package ledger provides the ledger entry domain model.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
)

// EntryType distinguishes money coming in from money going out.
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// IsValid checks if the entry type is valid.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryIncome, EntryExpense:
		return true
	}
	return false
}

// String returns the string representation of the entry type.
func (t EntryType) String() string {
	return string(t)
}

// Entry is one financial record owned by a user.
type Entry struct {
	ID          shared.ID
	UserID      shared.ID
	Type        EntryType
	Category    string
	Description string
	// AmountCents stores the amount in the smallest currency unit to
	// avoid floating point drift in sums.
	AmountCents int64
	OccurredAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks entry invariants before persistence.
func (e *Entry) Validate() error {
	if e.UserID.IsZero() {
		return fmt.Errorf("%w: entry requires an owner", shared.ErrInvalidInput)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: unknown entry type %q", shared.ErrInvalidInput, e.Type)
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: category is required", shared.ErrInvalidInput)
	}
	if e.AmountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrInvalidInput)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", shared.ErrInvalidInput)
	}
	return nil
}
