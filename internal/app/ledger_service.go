package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maegy2011/FMS-sub000/pkg/domain/ledger"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

// LedgerRepository persists ledger entries.
type LedgerRepository interface {
	Insert(ctx context.Context, e *ledger.Entry) error
	FindByID(ctx context.Context, id shared.ID) (*ledger.Entry, error)
	Update(ctx context.Context, e *ledger.Entry) error
	Delete(ctx context.Context, id shared.ID) error
	ListByUser(ctx context.Context, userID shared.ID, filter EntryFilter, p pagination.Pagination) ([]ledger.Entry, int64, error)
}

// EntryFilter narrows entry listings.
type EntryFilter struct {
	Type  ledger.EntryType
	Month time.Time // zero means no month filter
}

// LedgerService handles the financial record CRUD slice. Entries are
// owned: every operation checks the caller against the stored owner.
type LedgerService struct {
	entries LedgerRepository
	log     *logger.Logger
}

// NewLedgerService creates the ledger service.
func NewLedgerService(entries LedgerRepository, log *logger.Logger) *LedgerService {
	return &LedgerService{
		entries: entries,
		log:     log.With("service", "ledger"),
	}
}

// Create validates and stores a new entry for the given owner.
func (s *LedgerService) Create(ctx context.Context, e *ledger.Entry) (*ledger.Entry, error) {
	e.ID = shared.NewID()
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.entries.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return e, nil
}

// Get returns an entry if it belongs to the given user.
func (s *LedgerService) Get(ctx context.Context, userID, id shared.ID) (*ledger.Entry, error) {
	e, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.UserID.Equals(userID) {
		return nil, shared.ErrForbidden
	}
	return e, nil
}

// Update replaces the mutable fields of an owned entry.
func (s *LedgerService) Update(ctx context.Context, userID shared.ID, e *ledger.Entry) (*ledger.Entry, error) {
	existing, err := s.Get(ctx, userID, e.ID)
	if err != nil {
		return nil, err
	}

	existing.Type = e.Type
	existing.Category = e.Category
	existing.Description = e.Description
	existing.AmountCents = e.AmountCents
	existing.OccurredAt = e.OccurredAt
	existing.UpdatedAt = time.Now()

	if err := existing.Validate(); err != nil {
		return nil, err
	}

	if err := s.entries.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	return existing, nil
}

// Delete removes an owned entry.
func (s *LedgerService) Delete(ctx context.Context, userID, id shared.ID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// List returns a page of the user's entries, newest first.
func (s *LedgerService) List(ctx context.Context, userID shared.ID, filter EntryFilter, p pagination.Pagination) (*pagination.Result[ledger.Entry], error) {
	entries, total, err := s.entries.ListByUser(ctx, userID, filter, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	result := pagination.NewResult(entries, total, p)
	return &result, nil
}
