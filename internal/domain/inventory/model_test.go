package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
)

func TestLotValidate(t *testing.T) {
	ctx := context.Background()
	acquired := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	valid := NewLot(id.New(), types.MustMoney("120.00"), 10, acquired, LotStateNew)
	require.NoError(t, valid.Validate(ctx))

	tests := []struct {
		name   string
		mutate func(*Lot)
	}{
		{"missing product", func(l *Lot) { l.ProductID = id.Nil() }},
		{"negative cost", func(l *Lot) { l.UnitCost = types.MustMoney("-1.00") }},
		{"negative remaining", func(l *Lot) { l.Remaining = -1 }},
		{"zero acquisition date", func(l *Lot) { l.AcquiredAt = time.Time{} }},
		{"unknown state", func(l *Lot) { l.State = LotState("pristine") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := NewLot(id.New(), types.MustMoney("120.00"), 10, acquired, LotStateNew)
			tt.mutate(lot)
			assert.Error(t, lot.Validate(ctx))
		})
	}
}

func TestLotIsSellable(t *testing.T) {
	acquired := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sellable := []LotState{LotStateNew, LotStateRefurbished}
	for _, s := range sellable {
		lot := NewLot(id.New(), types.ZeroMoney(), 1, acquired, s)
		assert.True(t, lot.IsSellable(), "state %s", s)
	}

	unsellable := []LotState{
		LotStateUsed, LotStateReturned, LotStateDefective,
		LotStateInRepair, LotStateInReview,
	}
	for _, s := range unsellable {
		lot := NewLot(id.New(), types.ZeroMoney(), 1, acquired, s)
		assert.False(t, lot.IsSellable(), "state %s", s)
	}
}
