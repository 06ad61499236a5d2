// Package customer provides the customer catalog.
package customer

import (
	"context"
	"strings"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/entity"
)

// Customer represents a buyer. Contact fields are stored as plain
// text; no format validation is applied.
type Customer struct {
	entity.Catalog

	// Email contact, optional
	Email string `db:"email" json:"email,omitempty"`

	// Phone contact, optional, free-form
	Phone string `db:"phone" json:"phone,omitempty"`

	// Note is internal free text about the customer
	Note string `db:"note" json:"note,omitempty"`
}

// NewCustomer creates a customer with the given name.
func NewCustomer(name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog("", name),
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return apperror.NewValidation("invalid email").
			WithDetail("field", "email").
			WithDetail("value", c.Email)
	}

	return nil
}
