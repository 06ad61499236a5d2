package dto

import (
	"time"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain/orders"
)

// --- Requests ---

type OrderLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

func toLineRequests(lines []OrderLineRequest) ([]orders.LineRequest, error) {
	out := make([]orders.LineRequest, 0, len(lines))
	for i, line := range lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").
				WithDetail("line", i).
				WithDetail("value", line.ProductID)
		}
		out = append(out, orders.LineRequest{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}
	return out, nil
}

type CreateOrderRequest struct {
	Number        string             `json:"number,omitempty"`
	Date          *time.Time         `json:"date,omitempty"`
	CustomerID    string             `json:"customerId" binding:"required"`
	PaymentMethod string             `json:"paymentMethod" binding:"required"`
	Channel       string             `json:"channel" binding:"required"`
	Note          string             `json:"note,omitempty"`
	Lines         []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (r *CreateOrderRequest) ToEntity() (*orders.Order, []orders.LineRequest, error) {
	customerID, err := id.Parse(r.CustomerID)
	if err != nil {
		return nil, nil, apperror.NewValidation("invalid customer id").
			WithDetail("field", "customerId").
			WithDetail("value", r.CustomerID)
	}

	ord := orders.NewOrder(customerID,
		orders.PaymentMethod(r.PaymentMethod),
		orders.PurchaseChannel(r.Channel))
	ord.Number = r.Number
	ord.Note = r.Note
	if r.Date != nil {
		ord.Date = *r.Date
	}

	requests, err := toLineRequests(r.Lines)
	if err != nil {
		return nil, nil, err
	}

	return ord, requests, nil
}

type UpdateOrderRequest struct {
	Date          time.Time          `json:"date" binding:"required"`
	PaymentMethod string             `json:"paymentMethod" binding:"required"`
	Channel       string             `json:"channel" binding:"required"`
	Note          string             `json:"note,omitempty"`
	Lines         []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (r *UpdateOrderRequest) ToParams() (orders.UpdateParams, error) {
	requests, err := toLineRequests(r.Lines)
	if err != nil {
		return orders.UpdateParams{}, err
	}

	return orders.UpdateParams{
		Date:          r.Date,
		PaymentMethod: orders.PaymentMethod(r.PaymentMethod),
		Channel:       orders.PurchaseChannel(r.Channel),
		Note:          r.Note,
		Requests:      requests,
	}, nil
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderListRequest struct {
	ListRequest

	CustomerID string `form:"customerId"`
	Status     string `form:"status"`
}

func (r *OrderListRequest) ToFilter() (orders.ListFilter, error) {
	filter := orders.ListFilter{
		ListFilter: r.ListRequest.ToFilter(),
	}

	if r.CustomerID != "" {
		customerID, err := id.Parse(r.CustomerID)
		if err != nil {
			return filter, apperror.NewValidation("invalid customer id").
				WithDetail("field", "customerId").
				WithDetail("value", r.CustomerID)
		}
		filter.CustomerID = &customerID
	}

	if r.Status != "" {
		status := orders.Status(r.Status)
		filter.Status = &status
	}

	return filter, nil
}

// --- Responses ---

type OrderLineResponse struct {
	LineID    string      `json:"lineId"`
	LineNo    int         `json:"lineNo"`
	ProductID string      `json:"productId"`
	LotID     string      `json:"lotId"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
	Subtotal  types.Money `json:"subtotal"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	Number        string              `json:"number"`
	Date          time.Time           `json:"date"`
	CustomerID    string              `json:"customerId"`
	PaymentMethod string              `json:"paymentMethod"`
	Channel       string              `json:"channel"`
	Status        string              `json:"status"`
	Restocked     bool                `json:"restocked"`
	Note          string              `json:"note,omitempty"`
	Total         types.Money         `json:"total"`
	Lines         []OrderLineResponse `json:"lines"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Version       int                 `json:"version"`
}

func FromOrder(o *orders.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for i := range o.Lines {
		line := &o.Lines[i]
		lines = append(lines, OrderLineResponse{
			LineID:    line.LineID.String(),
			LineNo:    line.LineNo,
			ProductID: line.ProductID.String(),
			LotID:     line.LotID.String(),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal(),
		})
	}

	return OrderResponse{
		ID:            o.ID.String(),
		Number:        o.Number,
		Date:          o.Date,
		CustomerID:    o.CustomerID.String(),
		PaymentMethod: string(o.PaymentMethod),
		Channel:       string(o.Channel),
		Status:        string(o.Status),
		Restocked:     o.Restocked,
		Note:          o.Note,
		Total:         o.Total(),
		Lines:         lines,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
}

func FromOrders(items []*orders.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(items))
	for _, o := range items {
		out = append(out, FromOrder(o))
	}
	return out
}
