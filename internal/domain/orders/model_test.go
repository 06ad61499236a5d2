package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusInProcess, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDispatched, false},
		{StatusPending, StatusCompleted, false},
		{StatusInProcess, StatusDispatched, true},
		{StatusInProcess, StatusCancelled, true},
		{StatusInProcess, StatusReturned, false},
		{StatusDispatched, StatusCompleted, true},
		{StatusDispatched, StatusCancelled, false},
		{StatusCompleted, StatusReturned, true},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusReturned, StatusCompleted, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestRestocksOnEntry(t *testing.T) {
	assert.True(t, RestocksOnEntry(StatusCancelled))
	assert.True(t, RestocksOnEntry(StatusReturned))
	assert.False(t, RestocksOnEntry(StatusPending))
	assert.False(t, RestocksOnEntry(StatusInProcess))
	assert.False(t, RestocksOnEntry(StatusDispatched))
	assert.False(t, RestocksOnEntry(StatusCompleted))
}

func TestOrderTotal(t *testing.T) {
	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	assert.True(t, ord.Total().Equal(types.ZeroMoney()))

	ord.Lines = []OrderLine{
		{Quantity: 2, UnitPrice: types.MustMoney("150.50")},
		{Quantity: 1, UnitPrice: types.MustMoney("99.00")},
	}
	assert.True(t, ord.Total().Equal(types.MustMoney("400.00")))
}

func TestOrderValidate(t *testing.T) {
	ctx := context.Background()

	ord := NewOrder(id.New(), PaymentCreditCard, ChannelFacebookPage)
	require.NoError(t, ord.Validate(ctx))

	missing := NewOrder(id.Nil(), PaymentCash, ChannelInStore)
	err := missing.Validate(ctx)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	badPayment := NewOrder(id.New(), PaymentMethod("bitcoin"), ChannelInStore)
	require.Error(t, badPayment.Validate(ctx))

	badChannel := NewOrder(id.New(), PaymentCash, PurchaseChannel("carrier_pigeon"))
	require.Error(t, badChannel.Validate(ctx))
}

func TestAllocationRecordsMirrorLines(t *testing.T) {
	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	lotA, lotB := id.New(), id.New()
	ord.Lines = []OrderLine{
		{LotID: lotA, Quantity: 3, UnitPrice: types.MustMoney("10.00")},
		{LotID: lotB, Quantity: 5, UnitPrice: types.MustMoney("12.00")},
	}

	records := ord.AllocationRecords()
	require.Len(t, records, 2)
	assert.Equal(t, lotA, records[0].LotID)
	assert.Equal(t, int64(3), records[0].Quantity)
	assert.Equal(t, lotB, records[1].LotID)
	assert.Equal(t, int64(5), records[1].Quantity)
}
