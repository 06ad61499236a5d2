package inventory

import (
	"context"
	"time"

	"yiyostore/internal/core/id"
	"yiyostore/internal/domain"
)

// Repository defines persistence operations for the lot ledger.
type Repository interface {
	// Create inserts a new lot (stock received).
	Create(ctx context.Context, lot *Lot) error

	// GetByID retrieves a lot by ID.
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)

	// ListEligible returns the product's lots whose state is in states,
	// strictly ordered by acquisition date ascending, ties broken by
	// lot id ascending. Returns an empty slice (not an error) when no
	// lots qualify.
	//
	// Inside a transaction the rows are locked (FOR UPDATE) so that two
	// concurrent allocations for the same product serialize.
	ListEligible(ctx context.Context, productID id.ID, states []LotState) ([]*Lot, error)

	// Adjust adds delta to the lot's remaining quantity (negative for
	// allocation, positive for revert/return). This is the only
	// mutation entry point for quantities. Fails with
	// INVALID_ADJUSTMENT when the result would be negative.
	Adjust(ctx context.Context, lotID id.ID, delta int64) error

	// List retrieves lots with filtering (inventory screens).
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Lot], error)
}

// ListFilter narrows lot listings.
type ListFilter struct {
	domain.ListFilter

	ProductID    *id.ID
	States       []LotState
	AcquiredFrom *time.Time
	AcquiredTo   *time.Time
	ExcludeEmpty bool
}
