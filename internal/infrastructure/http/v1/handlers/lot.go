package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/domain/inventory"
	"yiyostore/internal/infrastructure/http/v1/dto"
)

// LotHandler exposes the lot ledger: receiving stock, manual
// adjustments, listings and availability.
type LotHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewLotHandler creates a lot handler.
func NewLotHandler(base *BaseHandler, service *inventory.Service) *LotHandler {
	return &LotHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Receive handles POST /lots - registers a new lot.
func (h *LotHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReceiveLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Receive(ctx, lot); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromLot(lot))
}

// Get handles GET /lots/:id.
func (h *LotHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	lotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	lot, err := h.service.GetByID(ctx, lotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLot(lot))
}

// List handles GET /lots.
func (h *LotHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LotListRequest
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

	h.OK(c, dto.NewListResponse(result, dto.FromLots(result.Items)))
}

// Adjust handles POST /lots/:id/adjust - manual quantity correction.
func (h *LotHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	lotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AdjustLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Adjust(ctx, lotID, req.Delta); err != nil {
		h.Error(c, err)
		return
	}

	lot, err := h.service.GetByID(ctx, lotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLot(lot))
}

// Availability handles GET /products/:id/availability - total sellable
// stock for a product across its eligible lots.
func (h *LotHandler) Availability(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	available, err := h.service.Availability(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailabilityResponse{
		ProductID: productID.String(),
		Available: available,
	})
}

// EligibleLots handles GET /products/:id/lots - the product's sellable
// lots in consumption order.
func (h *LotHandler) EligibleLots(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	lots, err := h.service.EligibleLots(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLots(lots))
}
