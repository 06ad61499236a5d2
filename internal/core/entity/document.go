package entity

import (
	"context"
	"time"

	"yiyostore/internal/core/apperror"
)

// Document is the base type for business transactions (orders, lot intakes).
type Document struct {
	BaseEntity

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Audit fields
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Note is an optional free-text comment
	Note string `db:"note" json:"note,omitempty"`
}

// NewDocument creates a new Document with generated ID and timestamps.
func NewDocument() Document {
	now := time.Now().UTC()
	return Document{
		BaseEntity: NewBaseEntity(),
		Date:       now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// Touch updates the UpdatedAt timestamp and increments version.
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().UTC()
	d.BaseEntity.Touch()
}
