package orders

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
	"yiyostore/internal/core/numerator"
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain"
	"yiyostore/internal/domain/inventory"
)

// nopTxManager runs the function directly; the fakes are already
// atomic enough for unit tests.
type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stockRepo is an in-memory lot ledger backing the allocator.
type stockRepo struct {
	lots map[id.ID]*inventory.Lot
}

func newStockRepo() *stockRepo {
	return &stockRepo{lots: make(map[id.ID]*inventory.Lot)}
}

func (r *stockRepo) addLot(productID id.ID, remaining int64, acquiredAt time.Time) *inventory.Lot {
	lot := inventory.NewLot(productID, types.MustMoney("50.00"), remaining, acquiredAt, inventory.LotStateNew)
	r.lots[lot.ID] = lot
	return lot
}

func (r *stockRepo) Create(_ context.Context, lot *inventory.Lot) error {
	r.lots[lot.ID] = lot
	return nil
}

func (r *stockRepo) GetByID(_ context.Context, lotID id.ID) (*inventory.Lot, error) {
	lot, ok := r.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound("lot", lotID)
	}
	return lot, nil
}

func (r *stockRepo) ListEligible(_ context.Context, productID id.ID, states []inventory.LotState) ([]*inventory.Lot, error) {
	eligible := make(map[inventory.LotState]bool, len(states))
	for _, s := range states {
		eligible[s] = true
	}
	var out []*inventory.Lot
	for _, lot := range r.lots {
		if lot.ProductID == productID && eligible[lot.State] {
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

func (r *stockRepo) Adjust(_ context.Context, lotID id.ID, delta int64) error {
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

func (r *stockRepo) List(_ context.Context, _ inventory.ListFilter) (domain.ListResult[*inventory.Lot], error) {
	return domain.ListResult[*inventory.Lot]{}, nil
}

func (r *stockRepo) remaining(lotID id.ID) int64 {
	return r.lots[lotID].Remaining
}

func (r *stockRepo) totalRemaining() int64 {
	var total int64
	for _, lot := range r.lots {
		total += lot.Remaining
	}
	return total
}

// fakeOrderRepo is an in-memory order store.
type fakeOrderRepo struct {
	orders map[id.ID]*Order

	failCreate       bool
	failReplaceLines bool
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[id.ID]*Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, ord *Order) error {
	if r.failCreate {
		return apperror.NewInternal(assert.AnError)
	}
	stored := *ord
	stored.Lines = append([]OrderLine(nil), ord.Lines...)
	r.orders[ord.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	stored, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	cp := *stored
	cp.Lines = append([]OrderLine(nil), stored.Lines...)
	return &cp, nil
}

func (r *fakeOrderRepo) Update(_ context.Context, ord *Order) error {
	stored, ok := r.orders[ord.ID]
	if !ok {
		return apperror.NewNotFound("order", ord.ID)
	}
	cp := *ord
	cp.Lines = stored.Lines
	r.orders[ord.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) ReplaceLines(_ context.Context, orderID id.ID, lines []OrderLine) error {
	if r.failReplaceLines {
		return apperror.NewInternal(assert.AnError)
	}
	stored, ok := r.orders[orderID]
	if !ok {
		return apperror.NewNotFound("order", orderID)
	}
	stored.Lines = append([]OrderLine(nil), lines...)
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, orderID id.ID) error {
	if _, ok := r.orders[orderID]; !ok {
		return apperror.NewNotFound("order", orderID)
	}
	delete(r.orders, orderID)
	return nil
}

func (r *fakeOrderRepo) List(_ context.Context, _ ListFilter) (*domain.ListResult[*Order], error) {
	result := &domain.ListResult[*Order]{}
	for _, ord := range r.orders {
		result.Items = append(result.Items, ord)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

// fakePriceSource returns prices from a fixed map.
type fakePriceSource struct {
	prices map[id.ID]types.Money
}

func (f *fakePriceSource) CurrentPrice(_ context.Context, productID id.ID) (types.Money, error) {
	price, ok := f.prices[productID]
	if !ok {
		return types.ZeroMoney(), apperror.NewNotFound("product", productID)
	}
	return price, nil
}

type fixture struct {
	service *Service
	orders  *fakeOrderRepo
	stock   *stockRepo
	prices  *fakePriceSource
}

func newFixture() *fixture {
	stock := newStockRepo()
	ordersRepo := newFakeOrderRepo()
	prices := &fakePriceSource{prices: make(map[id.ID]types.Money)}

	service := NewService(
		ordersRepo,
		prices,
		inventory.NewAllocator(stock),
		&numerator.MockGenerator{},
		nopTxManager{},
	)
	return &fixture{service: service, orders: ordersRepo, stock: stock, prices: prices}
}

func (f *fixture) addProduct(price string) id.ID {
	productID := id.New()
	f.prices.prices[productID] = types.MustMoney(price)
	return productID
}

func TestCreate_AllocatesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("299.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	err := f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}})
	require.NoError(t, err)

	assert.NotEmpty(t, ord.Number)
	require.Len(t, ord.Lines, 1)
	assert.Equal(t, lot.ID, ord.Lines[0].LotID)
	assert.Equal(t, int64(4), ord.Lines[0].Quantity)
	assert.True(t, ord.Lines[0].UnitPrice.Equal(types.MustMoney("299.00")))
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))

	stored, err := f.orders.GetByID(ctx, ord.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
	assert.True(t, stored.Total().Equal(types.MustMoney("1196.00")))
}

func TestCreate_LineSplitsAcrossLots(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := f.stock.addLot(productID, 3, base)
	newer := f.stock.addLot(productID, 10, base.AddDate(0, 0, 7))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	err := f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 5}})
	require.NoError(t, err)

	require.Len(t, ord.Lines, 2)
	assert.Equal(t, older.ID, ord.Lines[0].LotID)
	assert.Equal(t, int64(3), ord.Lines[0].Quantity)
	assert.Equal(t, newer.ID, ord.Lines[1].LotID)
	assert.Equal(t, int64(2), ord.Lines[1].Quantity)
	assert.Equal(t, 1, ord.Lines[0].LineNo)
	assert.Equal(t, 2, ord.Lines[1].LineNo)
}

func TestCreate_SecondLineFailureRevertsFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	inStock := f.addProduct("100.00")
	outOfStock := f.addProduct("200.00")
	lot := f.stock.addLot(inStock, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	err := f.service.Create(ctx, ord, []LineRequest{
		{ProductID: inStock, Quantity: 5},
		{ProductID: outOfStock, Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, int64(10), f.stock.remaining(lot.ID))
	assert.Empty(t, f.orders.orders)
}

func TestCreate_PersistFailureRevertsAllocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.orders.failCreate = true

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	err := f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 5}})
	require.Error(t, err)

	assert.Equal(t, int64(10), f.stock.remaining(lot.ID))
}

func TestCreate_RejectsEmptyAndInvalidRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.Error(t, f.service.Create(ctx, ord, nil))
	require.Error(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: id.Nil(), Quantity: 1}}))
	require.Error(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: id.New(), Quantity: 0}}))
}

func TestUpdate_ReallocatesLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}}))
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))

	updated, err := f.service.Update(ctx, ord.ID, UpdateParams{
		Date:          ord.Date,
		PaymentMethod: PaymentCreditCard,
		Channel:       ord.Channel,
		Requests:      []LineRequest{{ProductID: productID, Quantity: 7}},
	})
	require.NoError(t, err)

	assert.Equal(t, PaymentCreditCard, updated.PaymentMethod)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, int64(7), updated.Lines[0].Quantity)
	assert.Equal(t, int64(3), f.stock.remaining(lot.ID))

	stored, err := f.orders.GetByID(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(7), stored.Lines[0].Quantity)
}

func TestUpdate_FailedReallocationRestoresOriginal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}}))

	// 4 reverted + 6 on hand = 10 available; 11 cannot be satisfied.
	_, err := f.service.Update(ctx, ord.ID, UpdateParams{
		Date:          ord.Date,
		PaymentMethod: ord.PaymentMethod,
		Channel:       ord.Channel,
		Requests:      []LineRequest{{ProductID: productID, Quantity: 11}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Ledger and order are back to their pre-update state.
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))
	stored, err := f.orders.GetByID(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(4), stored.Lines[0].Quantity)
	assert.Equal(t, PaymentCash, stored.PaymentMethod)
}

func TestUpdate_LineReplacementFailureRestoresLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}}))
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))

	f.orders.failReplaceLines = true

	_, err := f.service.Update(ctx, ord.ID, UpdateParams{
		Date:          ord.Date,
		PaymentMethod: ord.PaymentMethod,
		Channel:       ord.Channel,
		Requests:      []LineRequest{{ProductID: productID, Quantity: 7}},
	})
	require.Error(t, err)

	// The new allocation was reverted and the original one restored.
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))
}

func TestUpdate_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.Update(ctx, id.New(), UpdateParams{
		Date:     time.Now(),
		Requests: []LineRequest{{ProductID: id.New(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_RevertsAllocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}}))
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))

	require.NoError(t, f.service.Delete(ctx, ord.ID))

	assert.Equal(t, int64(10), f.stock.remaining(lot.ID))
	_, err := f.orders.GetByID(ctx, ord.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_UnknownOrderIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	err := f.service.Delete(ctx, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Zero(t, f.stock.totalRemaining())
}

func TestUpdateStatus_ValidPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 2}}))

	for _, next := range []Status{StatusInProcess, StatusDispatched, StatusCompleted} {
		updated, err := f.service.UpdateStatus(ctx, ord.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 2}}))

	_, err := f.service.UpdateStatus(ctx, ord.ID, StatusCompleted)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
}

func TestUpdateStatus_CancelRestocksOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}}))
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))

	cancelled, err := f.service.UpdateStatus(ctx, ord.ID, StatusCancelled)
	require.NoError(t, err)
	assert.True(t, cancelled.Restocked)
	assert.Equal(t, int64(10), f.stock.remaining(lot.ID))

	// Deleting a restocked order must not revert a second time.
	require.NoError(t, f.service.Delete(ctx, ord.ID))
	assert.Equal(t, int64(10), f.stock.remaining(lot.ID))
}

func TestUpdateStatus_ReturnAfterCompletionRestocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	lot := f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 4}}))

	for _, next := range []Status{StatusInProcess, StatusDispatched, StatusCompleted} {
		_, err := f.service.UpdateStatus(ctx, ord.ID, next)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(6), f.stock.remaining(lot.ID))

	returned, err := f.service.UpdateStatus(ctx, ord.ID, StatusReturned)
	require.NoError(t, err)
	assert.True(t, returned.Restocked)
	assert.Equal(t, int64(10), f.stock.remaining(lot.ID))
}

func TestUpdate_RestockedOrderIsImmutable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	productID := f.addProduct("100.00")
	f.stock.addLot(productID, 10, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ord := NewOrder(id.New(), PaymentCash, ChannelInStore)
	require.NoError(t, f.service.Create(ctx, ord, []LineRequest{{ProductID: productID, Quantity: 2}}))

	_, err := f.service.UpdateStatus(ctx, ord.ID, StatusCancelled)
	require.NoError(t, err)

	_, err = f.service.Update(ctx, ord.ID, UpdateParams{
		Date:     ord.Date,
		Requests: []LineRequest{{ProductID: productID, Quantity: 1}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "ORDER_IMMUTABLE", appErr.Code)
}

func TestCreate_MultiProductOrderAllocatesEachLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	phone := f.addProduct("9999.00")
	charger := f.addProduct("349.00")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	phoneLot := f.stock.addLot(phone, 5, base)
	chargerLot := f.stock.addLot(charger, 50, base)

	ord := NewOrder(id.New(), PaymentCreditCard, ChannelFacebookMarketplace)
	err := f.service.Create(ctx, ord, []LineRequest{
		{ProductID: phone, Quantity: 1},
		{ProductID: charger, Quantity: 2},
	})
	require.NoError(t, err)

	require.Len(t, ord.Lines, 2)
	assert.Equal(t, int64(4), f.stock.remaining(phoneLot.ID))
	assert.Equal(t, int64(48), f.stock.remaining(chargerLot.ID))
	assert.True(t, ord.Total().Equal(types.MustMoney("10697.00")))
}
