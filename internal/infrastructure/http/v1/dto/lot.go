package dto

import (
	"time"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain/inventory"
)

// --- Requests ---

type ReceiveLotRequest struct {
	ProductID  string      `json:"productId" binding:"required"`
	UnitCost   types.Money `json:"unitCost"`
	Quantity   int64       `json:"quantity" binding:"required,gt=0"`
	AcquiredAt time.Time   `json:"acquiredAt" binding:"required"`
	State      string      `json:"state" binding:"required"`
}

func (r *ReceiveLotRequest) ToEntity() (*inventory.Lot, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return nil, apperror.NewValidation("invalid product id").
			WithDetail("field", "productId").
			WithDetail("value", r.ProductID)
	}

	return inventory.NewLot(productID, r.UnitCost, r.Quantity, r.AcquiredAt, inventory.LotState(r.State)), nil
}

type AdjustLotRequest struct {
	// Delta is positive for stock found, negative for shrinkage.
	Delta int64 `json:"delta" binding:"required"`
}

type LotListRequest struct {
	ListRequest

	ProductID    string `form:"productId"`
	State        string `form:"state"`
	ExcludeEmpty bool   `form:"excludeEmpty"`
}

func (r *LotListRequest) ToFilter() (inventory.ListFilter, error) {
	filter := inventory.ListFilter{
		ListFilter:   r.ListRequest.ToFilter(),
		ExcludeEmpty: r.ExcludeEmpty,
	}

	if r.ProductID != "" {
		productID, err := id.Parse(r.ProductID)
		if err != nil {
			return filter, apperror.NewValidation("invalid product id").
				WithDetail("field", "productId").
				WithDetail("value", r.ProductID)
		}
		filter.ProductID = &productID
	}

	if r.State != "" {
		filter.States = []inventory.LotState{inventory.LotState(r.State)}
	}

	return filter, nil
}

// --- Responses ---

type LotResponse struct {
	ID           string      `json:"id"`
	ProductID    string      `json:"productId"`
	UnitCost     types.Money `json:"unitCost"`
	Remaining    int64       `json:"remaining"`
	AcquiredAt   time.Time   `json:"acquiredAt"`
	State        string      `json:"state"`
	DeletionMark bool        `json:"deletionMark"`
	Version      int         `json:"version"`
}

func FromLot(l *inventory.Lot) LotResponse {
	return LotResponse{
		ID:           l.ID.String(),
		ProductID:    l.ProductID.String(),
		UnitCost:     l.UnitCost,
		Remaining:    l.Remaining,
		AcquiredAt:   l.AcquiredAt,
		State:        string(l.State),
		DeletionMark: l.DeletionMark,
		Version:      l.Version,
	}
}

func FromLots(items []*inventory.Lot) []LotResponse {
	out := make([]LotResponse, 0, len(items))
	for _, l := range items {
		out = append(out, FromLot(l))
	}
	return out
}

// AvailabilityResponse reports sellable stock for a product.
type AvailabilityResponse struct {
	ProductID string `json:"productId"`
	Available int64  `json:"available"`
}
