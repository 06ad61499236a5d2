package product

import "yiyostore/internal/domain"

// Repository persists products.
type Repository interface {
	domain.CatalogRepository[*Product]
}
