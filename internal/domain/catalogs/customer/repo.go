package customer

import "yiyostore/internal/domain"

// Repository persists customers.
type Repository interface {
	domain.CatalogRepository[*Customer]
}
