// Package inventory provides the lot ledger and the allocation engine.
// Stock is tracked per acquisition lot; demand is satisfied oldest lot
// first (FIFO/PEPS costing policy).
package inventory

import (
	"context"
	"time"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/entity"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
)

// LotState defines the condition of an acquisition lot.
type LotState string

const (
	LotStateNew         LotState = "new"         // Nuevo
	LotStateRefurbished LotState = "refurbished" // Reacondicionado
	LotStateUsed        LotState = "used"        // Usado
	LotStateReturned    LotState = "returned"    // Devuelto
	LotStateDefective   LotState = "defective"   // Defectuoso
	LotStateInRepair    LotState = "in_repair"   // En reparación
	LotStateInReview    LotState = "in_review"   // En revisión
)

// SellableStates is the set of lot states permitted to satisfy customer
// demand. It is a business policy constant, not a per-call parameter:
// allocation and any availability check must use the same set.
var SellableStates = []LotState{LotStateNew, LotStateRefurbished}

// Lot represents one acquisition batch of a product.
// Each lot carries its own unit cost and remaining quantity.
type Lot struct {
	entity.BaseEntity

	// ProductID is the owning product reference
	ProductID id.ID `db:"product_id" json:"productId"`

	// UnitCost is the acquisition cost per unit
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// Remaining is the quantity still available in this lot.
	// Never negative; mutated only through Repository.Adjust.
	Remaining int64 `db:"remaining" json:"remaining"`

	// AcquiredAt is the acquisition date. Allocation walks lots in
	// AcquiredAt ascending order, ties broken by id ascending.
	AcquiredAt time.Time `db:"acquired_at" json:"acquiredAt"`

	// State is the lot condition; only sellable states participate
	// in allocation.
	State LotState `db:"state" json:"state"`
}

// NewLot creates a lot for a received batch of stock.
func NewLot(productID id.ID, unitCost types.Money, quantity int64, acquiredAt time.Time, state LotState) *Lot {
	return &Lot{
		BaseEntity: entity.NewBaseEntity(),
		ProductID:  productID,
		UnitCost:   unitCost,
		Remaining:  quantity,
		AcquiredAt: acquiredAt,
		State:      state,
	}
}

// Validate implements entity.Validatable.
func (l *Lot) Validate(ctx context.Context) error {
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if l.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}

	if l.Remaining < 0 {
		return apperror.NewValidation("remaining quantity cannot be negative").
			WithDetail("field", "remaining")
	}

	if l.AcquiredAt.IsZero() {
		return apperror.NewValidation("acquisition date is required").
			WithDetail("field", "acquiredAt")
	}

	if !isValidLotState(l.State) {
		return apperror.NewValidation("invalid lot state").
			WithDetail("field", "state").
			WithDetail("value", string(l.State))
	}

	return nil
}

// IsSellable reports whether the lot's state is in the sellable set.
func (l *Lot) IsSellable() bool {
	for _, s := range SellableStates {
		if l.State == s {
			return true
		}
	}
	return false
}

func isValidLotState(s LotState) bool {
	switch s {
	case LotStateNew, LotStateRefurbished, LotStateUsed, LotStateReturned,
		LotStateDefective, LotStateInRepair, LotStateInReview:
		return true
	}
	return false
}
