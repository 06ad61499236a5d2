package inventory

import (
	"context"
	"fmt"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
	"yiyostore/pkg/logger"
)

// AllocationRecord is the atomic unit the engine produces: a consumption
// of a specific quantity from a specific lot at a captured unit price.
// One requested quantity may expand into multiple records when it had to
// be split across lots.
type AllocationRecord struct {
	LotID     id.ID       `json:"lotId"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
}

// Allocator converts a (product, requested quantity) pair into an
// ordered set of lot consumptions, and provides the exact inverse.
//
// Mutual exclusion per product is the caller's responsibility: run
// Allocate/Revert inside a transaction so ListEligible locks the
// product's lots. The engine itself is sequential.
type Allocator struct {
	lots Repository
}

// NewAllocator creates an allocation engine over the given lot ledger.
func NewAllocator(lots Repository) *Allocator {
	return &Allocator{lots: lots}
}

// Allocate consumes requested units of the product from its sellable
// lots, oldest acquisition first. It returns one AllocationRecord per
// lot touched, in consumption order.
//
// The call is all-or-nothing: when eligible lots cannot cover the
// request, every adjustment already applied is compensated before
// INSUFFICIENT_STOCK is returned, so the ledger is unchanged.
func (a *Allocator) Allocate(ctx context.Context, productID id.ID, requested int64, unitPrice types.Money) ([]AllocationRecord, error) {
	if requested <= 0 {
		return nil, apperror.NewInvalidRequest("requested quantity must be positive").
			WithDetail("product_id", productID.String()).
			WithDetail("requested", requested)
	}

	lots, err := a.lots.ListEligible(ctx, productID, SellableStates)
	if err != nil {
		return nil, fmt.Errorf("list eligible lots: %w", err)
	}

	var available int64
	for _, lot := range lots {
		available += lot.Remaining
	}

	records := make([]AllocationRecord, 0, 1)
	outstanding := requested

	for _, lot := range lots {
		if outstanding == 0 {
			break
		}
		if lot.Remaining == 0 {
			// Empty lots are skipped, not excluded: they stay valid
			// revert targets.
			continue
		}

		take := min(lot.Remaining, outstanding)
		if err := a.lots.Adjust(ctx, lot.ID, -take); err != nil {
			if rbErr := a.Revert(ctx, records); rbErr != nil {
				logger.Error(ctx, "allocation rollback failed",
					"product_id", productID,
					"error", rbErr,
				)
			}
			return nil, fmt.Errorf("adjust lot %s: %w", lot.ID, err)
		}

		records = append(records, AllocationRecord{
			LotID:     lot.ID,
			Quantity:  take,
			UnitPrice: unitPrice,
		})
		outstanding -= take
	}

	if outstanding > 0 {
		if rbErr := a.Revert(ctx, records); rbErr != nil {
			logger.Error(ctx, "allocation rollback failed",
				"product_id", productID,
				"error", rbErr,
			)
		}
		return nil, apperror.NewInsufficientStock(productID.String(), requested, available)
	}

	return records, nil
}

// Revert restores the consumed quantities of records back to their
// lots, in order. The engine does not track which records were already
// reverted; the caller must present each record exactly once.
func (a *Allocator) Revert(ctx context.Context, records []AllocationRecord) error {
	for _, rec := range records {
		if err := a.lots.Adjust(ctx, rec.LotID, rec.Quantity); err != nil {
			return fmt.Errorf("revert lot %s: %w", rec.LotID, err)
		}
	}
	return nil
}

// Restore re-applies a previously reverted record set, consuming the
// same quantities from the same lots again. The order reconciler uses
// it to undo the revert step when an update fails, leaving the ledger
// byte-for-byte as before the update attempt.
func (a *Allocator) Restore(ctx context.Context, records []AllocationRecord) error {
	for _, rec := range records {
		if err := a.lots.Adjust(ctx, rec.LotID, -rec.Quantity); err != nil {
			return fmt.Errorf("restore lot %s: %w", rec.LotID, err)
		}
	}
	return nil
}
