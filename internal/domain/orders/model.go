// Package orders provides the customer order aggregate and the
// reconciler that keeps order lines consistent with the lot ledger.
package orders

import (
	"context"
	"time"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/entity"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain"
	"yiyostore/internal/domain/inventory"
)

// Status is the order lifecycle state. It is orthogonal to allocation:
// the allocator only reacts to explicit allocate/revert calls.
type Status string

const (
	StatusPending    Status = "pending"    // Pendiente
	StatusInProcess  Status = "in_process" // En proceso
	StatusDispatched Status = "dispatched" // Enviado
	StatusCompleted  Status = "completed"  // Completado
	StatusCancelled  Status = "cancelled"  // Cancelado
	StatusReturned   Status = "returned"   // Devuelto
)

// transitions lists the legal status moves.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProcess, StatusCancelled},
	StatusInProcess:  {StatusDispatched, StatusCancelled},
	StatusDispatched: {StatusCompleted},
	StatusCompleted:  {StatusReturned},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RestocksOnEntry reports whether entering the status returns the
// order's consumed stock to its lots.
func RestocksOnEntry(s Status) bool {
	return s == StatusCancelled || s == StatusReturned
}

// PaymentMethod enumerates accepted payment methods. Carried as plain
// values; no validation logic beyond membership.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCashDeposit  PaymentMethod = "cash_deposit"
)

// PurchaseChannel enumerates where the sale originated.
type PurchaseChannel string

const (
	ChannelFacebookPage        PurchaseChannel = "facebook_page"
	ChannelFacebookMarketplace PurchaseChannel = "facebook_marketplace"
	ChannelInStore             PurchaseChannel = "in_store"
	ChannelReturningCustomer   PurchaseChannel = "returning_customer"
)

// Order represents a customer transaction with its allocation records.
type Order struct {
	entity.Document

	// Customer reference
	CustomerID id.ID `db:"customer_id" json:"customerId"`

	PaymentMethod PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Channel       PurchaseChannel `db:"channel" json:"channel"`
	Status        Status          `db:"status" json:"status"`

	// Restocked marks that the order's lines were already reverted to
	// the ledger (cancel/return). Guards against double revert.
	Restocked bool `db:"restocked" json:"restocked"`

	// Table part: allocation records, exclusively owned by the order.
	Lines []OrderLine `db:"-" json:"lines"`
}

// OrderLine records the consumption of a specific quantity from a
// specific lot for this order. One requested product quantity may span
// several lines when it was split across lots.
type OrderLine struct {
	LineID  id.ID `db:"line_id" json:"lineId"`
	LineNo  int   `db:"line_no" json:"lineNo"`
	OrderID id.ID `db:"order_id" json:"orderId"`

	ProductID id.ID `db:"product_id" json:"productId"`
	LotID     id.ID `db:"lot_id" json:"lotId"`

	// Quantity consumed from the lot; never exceeds what the lot held
	// at allocation time.
	Quantity int64 `db:"quantity" json:"quantity"`

	// UnitPrice is the sale price captured from the product catalog at
	// allocation time.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
}

// Subtotal returns quantity times unit price.
func (l *OrderLine) Subtotal() types.Money {
	return types.LineSubtotal(l.UnitPrice, l.Quantity)
}

// LineRequest is one requested (product, quantity) pair before
// allocation expands it into lines.
type LineRequest struct {
	ProductID id.ID `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// NewOrder creates a pending order for a customer.
func NewOrder(customerID id.ID, payment PaymentMethod, channel PurchaseChannel) *Order {
	return &Order{
		Document:      entity.NewDocument(),
		CustomerID:    customerID,
		PaymentMethod: payment,
		Channel:       channel,
		Status:        StatusPending,
		Lines:         make([]OrderLine, 0),
	}
}

// Total is the derived order amount: the sum of line subtotals. It is
// never stored, so it cannot drift from the lines.
func (o *Order) Total() types.Money {
	total := types.ZeroMoney()
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Subtotal())
	}
	return total
}

// AllocationRecords maps the order's lines back to engine records, in
// line order, for revert.
func (o *Order) AllocationRecords() []inventory.AllocationRecord {
	records := make([]inventory.AllocationRecord, 0, len(o.Lines))
	for _, line := range o.Lines {
		records = append(records, inventory.AllocationRecord{
			LotID:     line.LotID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return records
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	if !isValidPaymentMethod(o.PaymentMethod) {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(o.PaymentMethod))
	}

	if !isValidChannel(o.Channel) {
		return apperror.NewValidation("invalid purchase channel").
			WithDetail("field", "channel").
			WithDetail("value", string(o.Channel))
	}

	return nil
}

// ListFilter narrows order listings.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
}

func isValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentPayPal,
		PaymentBankTransfer, PaymentCashDeposit:
		return true
	}
	return false
}

func isValidChannel(c PurchaseChannel) bool {
	switch c {
	case ChannelFacebookPage, ChannelFacebookMarketplace, ChannelInStore,
		ChannelReturningCustomer:
		return true
	}
	return false
}
