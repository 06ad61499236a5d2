package inventory

import (
	"context"
	"fmt"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/tx"
	"yiyostore/internal/domain"
	"yiyostore/pkg/logger"
)

// Service provides business operations for the lot ledger: receiving
// stock, direct adjustments, and availability queries. Allocation and
// reversal live in Allocator; this service never bypasses Adjust.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new inventory service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Receive registers a newly acquired lot.
func (s *Service) Receive(ctx context.Context, lot *Lot) error {
	if err := lot.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, lot)
	})
	if err != nil {
		return fmt.Errorf("create lot: %w", err)
	}

	logger.Info(ctx, "lot received",
		"lot_id", lot.ID,
		"product_id", lot.ProductID,
		"quantity", lot.Remaining,
	)
	return nil
}

// Adjust applies a manual quantity correction to a lot (stock count,
// breakage). Goes through the same single mutation entry point as the
// allocator.
func (s *Service) Adjust(ctx context.Context, lotID id.ID, delta int64) error {
	if delta == 0 {
		return apperror.NewInvalidRequest("adjustment delta must be non-zero").
			WithDetail("lot_id", lotID.String())
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Adjust(ctx, lotID, delta)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "lot adjusted", "lot_id", lotID, "delta", delta)
	return nil
}

// GetByID retrieves a lot.
func (s *Service) GetByID(ctx context.Context, lotID id.ID) (*Lot, error) {
	return s.repo.GetByID(ctx, lotID)
}

// EligibleLots returns the product's sellable lots in allocation order.
func (s *Service) EligibleLots(ctx context.Context, productID id.ID) ([]*Lot, error) {
	return s.repo.ListEligible(ctx, productID, SellableStates)
}

// Availability returns the total quantity of the product available for
// sale (sum over sellable lots). Used for feasibility checks; it must
// agree with what Allocate can actually consume.
func (s *Service) Availability(ctx context.Context, productID id.ID) (int64, error) {
	lots, err := s.repo.ListEligible(ctx, productID, SellableStates)
	if err != nil {
		return 0, fmt.Errorf("list eligible lots: %w", err)
	}

	var total int64
	for _, lot := range lots {
		total += lot.Remaining
	}
	return total, nil
}

// List retrieves lots with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Lot], error) {
	return s.repo.List(ctx, filter)
}
