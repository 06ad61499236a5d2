package product

import (
	"context"
	"fmt"
	"time"

	"yiyostore/internal/core/id"
	"yiyostore/internal/core/numerator"
	"yiyostore/internal/core/tx"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain"
)

// Service provides business logic for the product catalog. Uses
// composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo    Repository
	numbers numerator.Generator
}

// NewService creates a product service.
func NewService(repo Repository, numbers numerator.Generator, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numbers:        numbers,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate assigns a generated code when none is provided.
func (s *Service) prepareForCreate(ctx context.Context, item *Product) error {
	if item.Code == "" {
		code, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("PRD"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}

// CurrentPrice returns the product's current unit sale price.
func (s *Service) CurrentPrice(ctx context.Context, productID id.ID) (types.Money, error) {
	item, err := s.GetByID(ctx, productID)
	if err != nil {
		return types.ZeroMoney(), err
	}
	return item.Price, nil
}
