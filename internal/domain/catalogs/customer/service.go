package customer

import (
	"context"
	"fmt"
	"time"

	"yiyostore/internal/core/numerator"
	"yiyostore/internal/core/tx"
	"yiyostore/internal/domain"
)

// Service provides business logic for the customer catalog.
type Service struct {
	*domain.CatalogService[*Customer]
	repo    Repository
	numbers numerator.Generator
}

// NewService creates a customer service.
func NewService(repo Repository, numbers numerator.Generator, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "customer",
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
func (s *Service) prepareForCreate(ctx context.Context, item *Customer) error {
	if item.Code == "" {
		code, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("CUS"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}
