package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/domain/orders"
	"yiyostore/internal/infrastructure/http/v1/dto"
)

// OrderHandler exposes order creation, reconciliation and lifecycle.
type OrderHandler struct {
	*BaseHandler
	service *orders.Service
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(base *BaseHandler, service *orders.Service) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ord, requests, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, ord, requests); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromOrder(ord))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	ord, err := h.service.GetByID(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(ord))
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OrderListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(*result, dto.FromOrders(result.Items)))
}

// Update handles PUT /orders/:id - replaces header fields and the
// requested line set, reconciling stock.
func (h *OrderHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	params, err := req.ToParams()
	if err != nil {
		h.Error(c, err)
		return
	}

	ord, err := h.service.Update(ctx, orderID, params)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(ord))
}

// UpdateStatus handles PATCH /orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ord, err := h.service.UpdateStatus(ctx, orderID, orders.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(ord))
}

// Delete handles DELETE /orders/:id - reverts allocations and removes
// the order.
func (h *OrderHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, orderID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
