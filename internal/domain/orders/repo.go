package orders

import (
	"context"

	"yiyostore/internal/core/id"
	"yiyostore/internal/domain"
)

// Repository persists orders together with their lines. The line set
// is exclusively owned by the order: lines are written and replaced
// only through these methods, never independently.
type Repository interface {
	// Create persists the order header and all of its lines.
	Create(ctx context.Context, ord *Order) error

	// GetByID loads the order with its lines, ordered by line number.
	// Returns NOT_FOUND if the order does not exist.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// Update persists header changes with an optimistic-lock version
	// check. Lines are not touched; use ReplaceLines.
	Update(ctx context.Context, ord *Order) error

	// ReplaceLines atomically swaps the order's line set for the given
	// one within the ambient transaction.
	ReplaceLines(ctx context.Context, orderID id.ID, lines []OrderLine) error

	// Delete removes the order and cascades to its lines. Returns
	// NOT_FOUND if the order does not exist.
	Delete(ctx context.Context, orderID id.ID) error

	// List returns orders matching the filter, headers only.
	List(ctx context.Context, filter ListFilter) (*domain.ListResult[*Order], error)
}
