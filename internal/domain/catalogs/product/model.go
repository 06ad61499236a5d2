// Package product provides the product catalog. Products describe what
// is sold; physical stock lives in lots that reference a product.
package product

import (
	"context"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/entity"
	"yiyostore/internal/core/types"
)

// Category groups products for listing purposes.
type Category string

const (
	CategoryPhone     Category = "phone"
	CategoryTablet    Category = "tablet"
	CategoryLaptop    Category = "laptop"
	CategoryAccessory Category = "accessory"
	CategoryOther     Category = "other"
)

// Product represents a sellable item.
type Product struct {
	entity.Catalog

	// Description is a free-text detail shown to the customer
	Description string `db:"description" json:"description,omitempty"`

	// Category groups the product for listings
	Category Category `db:"category" json:"category"`

	// Price is the current unit sale price. Orders capture it onto
	// their lines at allocation time; changing it later never affects
	// existing orders.
	Price types.Money `db:"price" json:"price"`
}

// NewProduct creates a product with the given name and price.
func NewProduct(name string, price types.Money) *Product {
	return &Product{
		Catalog:  entity.NewCatalog("", name),
		Category: CategoryOther,
		Price:    price,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price").
			WithDetail("value", p.Price.String())
	}

	if p.Category != "" && !isValidCategory(p.Category) {
		return apperror.NewValidation("invalid category").
			WithDetail("field", "category").
			WithDetail("value", string(p.Category))
	}

	return nil
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryPhone, CategoryTablet, CategoryLaptop, CategoryAccessory, CategoryOther:
		return true
	}
	return false
}
