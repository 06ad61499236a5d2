package orders

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/numerator"
	"yiyostore/internal/core/tx"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain"
	"yiyostore/internal/domain/inventory"
	"yiyostore/pkg/logger"
)

// NumberPrefix for generated order numbers (ORD-2026-00001).
const NumberPrefix = "ORD"

// PriceSource supplies the current sale price of a product. The price
// is captured onto each line at allocation time and never re-read.
type PriceSource interface {
	CurrentPrice(ctx context.Context, productID id.ID) (types.Money, error)
}

// Service reconciles orders against the lot ledger: every create,
// update and delete keeps the order's lines and the lots' remaining
// quantities mutually consistent.
type Service struct {
	repo      Repository
	prices    PriceSource
	allocator *inventory.Allocator
	numbers   numerator.Generator
	txManager tx.Manager
}

// NewService creates the order service.
func NewService(
	repo Repository,
	prices PriceSource,
	allocator *inventory.Allocator,
	numbers numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		prices:    prices,
		allocator: allocator,
		numbers:   numbers,
		txManager: txManager,
	}
}

// UpdateParams carries the editable header fields plus the full
// replacement set of requested lines.
type UpdateParams struct {
	Date          time.Time
	PaymentMethod PaymentMethod
	Channel       PurchaseChannel
	Note          string
	Requests      []LineRequest
}

// Create validates the order, allocates stock for every requested
// line and persists the order with the resulting allocation records.
// Allocation and persistence succeed or fail as a whole: any failure
// returns every consumed quantity to its lot.
func (s *Service) Create(ctx context.Context, ord *Order, requests []LineRequest) error {
	if err := ord.Validate(ctx); err != nil {
		return err
	}
	if err := validateRequests(requests); err != nil {
		return err
	}

	if ord.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numbers.GetNextNumber(ctx, cfg, numerator.DefaultOptions(), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		ord.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.allocateLines(ctx, ord.ID, requests)
		if err != nil {
			return err
		}
		ord.Lines = lines

		if err := s.repo.Create(ctx, ord); err != nil {
			if revErr := s.allocator.Revert(ctx, ord.AllocationRecords()); revErr != nil {
				logger.Error(ctx, "revert after failed create", "order_id", ord.ID, "error", revErr)
			}
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order created",
		"id", ord.ID, "number", ord.Number,
		"customer_id", ord.CustomerID, "lines", len(ord.Lines))
	return nil
}

// GetByID loads an order with its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// Update reconciles an order against a new set of requested lines:
// the old allocations are reverted, the new requests allocated, and
// the line set replaced. If re-allocation fails, the original
// allocations are restored and the order is left untouched, so the
// ledger ends identical to its pre-update state.
func (s *Service) Update(ctx context.Context, orderID id.ID, params UpdateParams) (*Order, error) {
	if err := validateRequests(params.Requests); err != nil {
		return nil, err
	}

	var ord *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		ord, err = s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.canModify(ord); err != nil {
			return err
		}

		oldRecords := ord.AllocationRecords()
		if err := s.allocator.Revert(ctx, oldRecords); err != nil {
			return fmt.Errorf("revert current lines: %w", err)
		}

		lines, err := s.allocateLines(ctx, ord.ID, params.Requests)
		if err != nil {
			if resErr := s.allocator.Restore(ctx, oldRecords); resErr != nil {
				logger.Error(ctx, "restore after failed reallocation", "order_id", orderID, "error", resErr)
			}
			return err
		}

		ord.Date = params.Date
		ord.PaymentMethod = params.PaymentMethod
		ord.Channel = params.Channel
		ord.Note = params.Note
		ord.Touch()
		if err := ord.Validate(ctx); err != nil {
			if resErr := s.restoreLines(ctx, ord, lines, oldRecords); resErr != nil {
				return resErr
			}
			return err
		}

		if err := s.repo.Update(ctx, ord); err != nil {
			if resErr := s.restoreLines(ctx, ord, lines, oldRecords); resErr != nil {
				return resErr
			}
			return fmt.Errorf("update order: %w", err)
		}
		if err := s.repo.ReplaceLines(ctx, ord.ID, lines); err != nil {
			if resErr := s.restoreLines(ctx, ord, lines, oldRecords); resErr != nil {
				return resErr
			}
			return fmt.Errorf("replace lines: %w", err)
		}
		ord.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order updated", "id", ord.ID, "number", ord.Number, "lines", len(ord.Lines))
	return ord, nil
}

// restoreLines undoes a successful re-allocation and re-applies the
// original records when a later step of an update fails.
func (s *Service) restoreLines(ctx context.Context, ord *Order, newLines []OrderLine, oldRecords []inventory.AllocationRecord) error {
	tmp := Order{Lines: newLines}
	if err := s.allocator.Revert(ctx, tmp.AllocationRecords()); err != nil {
		return fmt.Errorf("revert new lines: %w", err)
	}
	if err := s.allocator.Restore(ctx, oldRecords); err != nil {
		return fmt.Errorf("restore original lines: %w", err)
	}
	return nil
}

// Delete reverts the order's allocations and removes it. An unknown
// order yields NOT_FOUND, never a stock error. Orders already
// restocked by a cancel or return are deleted without touching lots.
func (s *Service) Delete(ctx context.Context, orderID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ord, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if !ord.Restocked {
			if err := s.allocator.Revert(ctx, ord.AllocationRecords()); err != nil {
				return fmt.Errorf("revert lines: %w", err)
			}
		}
		if err := s.repo.Delete(ctx, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order deleted", "id", orderID)
	return nil
}

// UpdateStatus advances the order through its lifecycle. Entering
// cancelled or returned reverts the order's allocations once; the
// Restocked flag prevents a later delete from reverting again.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, to Status) (*Order, error) {
	var ord *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		ord, err = s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if !CanTransition(ord.Status, to) {
			return apperror.NewInvalidTransition(string(ord.Status), string(to))
		}

		if RestocksOnEntry(to) && !ord.Restocked {
			if err := s.allocator.Revert(ctx, ord.AllocationRecords()); err != nil {
				return fmt.Errorf("revert lines: %w", err)
			}
			ord.Restocked = true
		}

		ord.Status = to
		ord.Touch()
		if err := s.repo.Update(ctx, ord); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order status changed", "id", orderID, "status", to)
	return ord, nil
}

// List returns order headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (*domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}

// Total recomputes the order amount from its lines.
func (s *Service) Total(ctx context.Context, orderID id.ID) (types.Money, error) {
	ord, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return types.ZeroMoney(), err
	}
	return ord.Total(), nil
}

// allocateLines expands line requests into allocation records. On any
// failure the allocations already made for earlier requests are
// reverted before the error is returned, so a partially satisfiable
// order never consumes stock.
//
// Requests are processed in product-id order so that concurrent
// multi-product orders acquire lot locks in a consistent sequence.
func (s *Service) allocateLines(ctx context.Context, orderID id.ID, requests []LineRequest) ([]OrderLine, error) {
	ordered := make([]LineRequest, len(requests))
	copy(ordered, requests)
	sort.SliceStable(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].ProductID[:], ordered[j].ProductID[:]) < 0
	})

	lines := make([]OrderLine, 0, len(ordered))
	allocated := make([]inventory.AllocationRecord, 0, len(ordered))

	for _, req := range ordered {
		price, err := s.prices.CurrentPrice(ctx, req.ProductID)
		if err != nil {
			s.revertPartial(ctx, orderID, allocated)
			return nil, err
		}

		records, err := s.allocator.Allocate(ctx, req.ProductID, req.Quantity, price)
		if err != nil {
			s.revertPartial(ctx, orderID, allocated)
			return nil, err
		}

		for _, rec := range records {
			lines = append(lines, OrderLine{
				LineID:    id.New(),
				LineNo:    len(lines) + 1,
				OrderID:   orderID,
				ProductID: req.ProductID,
				LotID:     rec.LotID,
				Quantity:  rec.Quantity,
				UnitPrice: rec.UnitPrice,
			})
			allocated = append(allocated, rec)
		}
	}

	return lines, nil
}

func (s *Service) revertPartial(ctx context.Context, orderID id.ID, allocated []inventory.AllocationRecord) {
	if len(allocated) == 0 {
		return
	}
	if err := s.allocator.Revert(ctx, allocated); err != nil {
		logger.Error(ctx, "revert partial allocation", "order_id", orderID, "error", err)
	}
}

func (s *Service) canModify(ord *Order) error {
	if ord.Restocked || RestocksOnEntry(ord.Status) {
		return apperror.NewBusinessRule("ORDER_IMMUTABLE",
			fmt.Sprintf("order in status %q cannot be modified", ord.Status)).
			WithDetail("order_id", ord.ID.String()).
			WithDetail("status", string(ord.Status))
	}
	return nil
}

func validateRequests(requests []LineRequest) error {
	if len(requests) == 0 {
		return apperror.NewInvalidRequest("order requires at least one line").
			WithDetail("field", "lines")
	}
	for i, req := range requests {
		if id.IsNil(req.ProductID) {
			return apperror.NewInvalidRequest("line product is required").
				WithDetail("line", i)
		}
		if req.Quantity <= 0 {
			return apperror.NewInvalidRequest("line quantity must be positive").
				WithDetail("line", i).
				WithDetail("quantity", req.Quantity)
		}
	}
	return nil
}
