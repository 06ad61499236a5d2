package inventory

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yiyostore/internal/core/apperror"
	"yiyostore/internal/core/id"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain"
)

// fakeLotRepo is an in-memory lot ledger. Adjust enforces the same
// non-negativity rule as the Postgres implementation, so allocator
// tests exercise the real failure paths.
type fakeLotRepo struct {
	lots map[id.ID]*Lot

	// failAdjust makes Adjust on this lot fail unconditionally, to
	// simulate a storage error mid-allocation.
	failAdjust id.ID

	adjustCalls int
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{lots: make(map[id.ID]*Lot)}
}

func (r *fakeLotRepo) add(lot *Lot) *Lot {
	r.lots[lot.ID] = lot
	return lot
}

func (r *fakeLotRepo) Create(_ context.Context, lot *Lot) error {
	r.lots[lot.ID] = lot
	return nil
}

func (r *fakeLotRepo) GetByID(_ context.Context, lotID id.ID) (*Lot, error) {
	lot, ok := r.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound("lot", lotID)
	}
	return lot, nil
}

func (r *fakeLotRepo) ListEligible(_ context.Context, productID id.ID, states []LotState) ([]*Lot, error) {
	eligible := make(map[LotState]bool, len(states))
	for _, s := range states {
		eligible[s] = true
	}

	var out []*Lot
	for _, lot := range r.lots {
		if lot.ProductID == productID && eligible[lot.State] && !lot.DeletionMark {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AcquiredAt.Equal(out[j].AcquiredAt) {
			return out[i].AcquiredAt.Before(out[j].AcquiredAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeLotRepo) Adjust(_ context.Context, lotID id.ID, delta int64) error {
	r.adjustCalls++
	if lotID == r.failAdjust {
		return apperror.NewInternal(assert.AnError)
	}
	lot, ok := r.lots[lotID]
	if !ok {
		return apperror.NewNotFound("lot", lotID)
	}
	if lot.Remaining+delta < 0 {
		return apperror.NewInvalidAdjustment(lotID.String(), lot.Remaining, delta)
	}
	lot.Remaining += delta
	return nil
}

func (r *fakeLotRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Lot], error) {
	return domain.ListResult[*Lot]{}, nil
}

func (r *fakeLotRepo) remaining(lotID id.ID) int64 {
	return r.lots[lotID].Remaining
}

func makeLot(productID id.ID, remaining int64, acquiredAt time.Time, state LotState) *Lot {
	return NewLot(productID, types.MustMoney("100.00"), remaining, acquiredAt, state)
}

func TestAllocate_OldestLotFirst(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	newer := repo.add(makeLot(productID, 10, base.AddDate(0, 0, 5), LotStateNew))
	older := repo.add(makeLot(productID, 10, base, LotStateNew))

	allocator := NewAllocator(repo)
	price := types.MustMoney("250.00")

	records, err := allocator.Allocate(ctx, productID, 7, price)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, older.ID, records[0].LotID)
	assert.Equal(t, int64(7), records[0].Quantity)
	assert.True(t, records[0].UnitPrice.Equal(price))

	assert.Equal(t, int64(3), repo.remaining(older.ID))
	assert.Equal(t, int64(10), repo.remaining(newer.ID))
}

func TestAllocate_SplitsAcrossLots(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	first := repo.add(makeLot(productID, 10, base, LotStateNew))
	second := repo.add(makeLot(productID, 10, base.AddDate(0, 0, 1), LotStateRefurbished))

	allocator := NewAllocator(repo)

	records, err := allocator.Allocate(ctx, productID, 15, types.MustMoney("99.00"))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].LotID)
	assert.Equal(t, int64(10), records[0].Quantity)
	assert.Equal(t, second.ID, records[1].LotID)
	assert.Equal(t, int64(5), records[1].Quantity)

	assert.Equal(t, int64(0), repo.remaining(first.ID))
	assert.Equal(t, int64(5), repo.remaining(second.ID))
}

func TestAllocate_TieBrokenByLotID(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	acquired := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := repo.add(makeLot(productID, 5, acquired, LotStateNew))
	b := repo.add(makeLot(productID, 5, acquired, LotStateNew))

	winner, loser := a, b
	if bytes.Compare(b.ID[:], a.ID[:]) < 0 {
		winner, loser = b, a
	}

	allocator := NewAllocator(repo)

	records, err := allocator.Allocate(ctx, productID, 3, types.MustMoney("10.00"))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, winner.ID, records[0].LotID)
	assert.Equal(t, int64(5), repo.remaining(loser.ID))
}

func TestAllocate_SkipsEmptyAndUnsellableLots(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	empty := repo.add(makeLot(productID, 0, base, LotStateNew))
	used := repo.add(makeLot(productID, 20, base.AddDate(0, 0, 1), LotStateUsed))
	sellable := repo.add(makeLot(productID, 8, base.AddDate(0, 0, 2), LotStateNew))

	allocator := NewAllocator(repo)

	records, err := allocator.Allocate(ctx, productID, 8, types.MustMoney("10.00"))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, sellable.ID, records[0].LotID)
	assert.Equal(t, int64(0), repo.remaining(empty.ID))
	assert.Equal(t, int64(20), repo.remaining(used.ID))
}

func TestAllocate_InsufficientStockLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := repo.add(makeLot(productID, 10, base, LotStateNew))
	second := repo.add(makeLot(productID, 4, base.AddDate(0, 0, 1), LotStateNew))

	allocator := NewAllocator(repo)

	records, err := allocator.Allocate(ctx, productID, 15, types.MustMoney("10.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Nil(t, records)

	// Partial consumption was compensated.
	assert.Equal(t, int64(10), repo.remaining(first.ID))
	assert.Equal(t, int64(4), repo.remaining(second.ID))
}

func TestAllocate_NoEligibleLots(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	allocator := NewAllocator(repo)

	_, err := allocator.Allocate(ctx, productID, 1, types.MustMoney("10.00"))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	allocator := NewAllocator(repo)

	for _, requested := range []int64{0, -3} {
		_, err := allocator.Allocate(ctx, id.New(), requested, types.MustMoney("10.00"))
		require.Error(t, err)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidRequest, appErr.Code)
	}
	assert.Zero(t, repo.adjustCalls)
}

func TestAllocate_AdjustFailureRollsBackEarlierLots(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := repo.add(makeLot(productID, 5, base, LotStateNew))
	broken := repo.add(makeLot(productID, 5, base.AddDate(0, 0, 1), LotStateNew))
	repo.failAdjust = broken.ID

	allocator := NewAllocator(repo)

	_, err := allocator.Allocate(ctx, productID, 8, types.MustMoney("10.00"))
	require.Error(t, err)

	assert.Equal(t, int64(5), repo.remaining(first.ID))
	assert.Equal(t, int64(5), repo.remaining(broken.ID))
}

func TestRevert_RestoresConsumedQuantities(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := repo.add(makeLot(productID, 10, base, LotStateNew))
	second := repo.add(makeLot(productID, 10, base.AddDate(0, 0, 1), LotStateNew))

	allocator := NewAllocator(repo)

	records, err := allocator.Allocate(ctx, productID, 15, types.MustMoney("10.00"))
	require.NoError(t, err)

	require.NoError(t, allocator.Revert(ctx, records))

	assert.Equal(t, int64(10), repo.remaining(first.ID))
	assert.Equal(t, int64(10), repo.remaining(second.ID))
}

func TestRestore_ReappliesRevertedRecords(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLotRepo()
	productID := id.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lot := repo.add(makeLot(productID, 10, base, LotStateNew))

	allocator := NewAllocator(repo)

	records, err := allocator.Allocate(ctx, productID, 6, types.MustMoney("10.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), repo.remaining(lot.ID))

	require.NoError(t, allocator.Revert(ctx, records))
	assert.Equal(t, int64(10), repo.remaining(lot.ID))

	require.NoError(t, allocator.Restore(ctx, records))
	assert.Equal(t, int64(4), repo.remaining(lot.ID))
}
