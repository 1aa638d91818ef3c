package order

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/entity"
	repo "github.com/Additional-Code/bazaar/internal/repository/order"
	productrepo "github.com/Additional-Code/bazaar/internal/repository/product"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

type fakeOrderStore struct {
	mu       sync.Mutex
	nextID   int64
	orders   map[int64]*entity.Order
	byNumber map[string]int64

	// invoked inside MarkPaid before the status guard; lets tests
	// interleave a competing payment.
	beforeMarkPaid func()
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:   make(map[int64]*entity.Order),
		byNumber: make(map[string]int64),
	}
}

func (f *fakeOrderStore) add(order entity.Order) *entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	order.ID = f.nextID
	f.orders[order.ID] = &order
	f.byNumber[order.Number] = order.ID
	return &order
}

func (f *fakeOrderStore) get(id int64) entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orders[id]
}

func (f *fakeOrderStore) snapshot() map[int64]entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]entity.Order, len(f.orders))
	for id, o := range f.orders {
		out[id] = *o
	}
	return out
}

func (f *fakeOrderStore) restore(snap map[int64]entity.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range snap {
		cp := o
		f.orders[id] = &cp
	}
}

func (f *fakeOrderStore) Create(_ context.Context, order *entity.Order) error {
	created := f.add(*order)
	*order = *created
	return nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderStore) GetByNumber(_ context.Context, number string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byNumber[number]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *f.orders[id]
	return &cp, nil
}

func (f *fakeOrderStore) List(context.Context) ([]entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderStore) ListByUser(_ context.Context, userID int64, status entity.Status) ([]entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Order
	for _, o := range f.orders {
		if o.UserID != userID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderStore) MarkPaid(_ context.Context, _ bun.IDB, number string, at time.Time) (bool, error) {
	if f.beforeMarkPaid != nil {
		f.beforeMarkPaid()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byNumber[number]
	if !ok {
		return false, nil
	}
	order := f.orders[id]
	if order.Status != entity.StatusPendingPayment {
		return false, nil
	}
	order.Status = entity.StatusPaid
	order.PayTime = at
	order.UpdatedAt = at
	return true, nil
}

func (f *fakeOrderStore) MarkShipped(_ context.Context, id int64, trackingNumber, company, remark string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != entity.StatusPaid {
		return false, nil
	}
	order.Status = entity.StatusShipped
	order.TrackingNumber = trackingNumber
	order.ShippingCompany = company
	order.ShippingRemark = remark
	order.ShippingTime = at
	order.UpdatedAt = at
	return true, nil
}

func (f *fakeOrderStore) Transition(_ context.Context, id int64, from, to entity.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (f *fakeOrderStore) CancelPreShipment(_ context.Context, id, ownerID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	if ownerID != 0 {
		if order.UserID != ownerID || order.Status != entity.StatusPendingPayment {
			return false, nil
		}
	} else if !order.Status.PreShipment() {
		return false, nil
	}
	order.Status = entity.StatusCancelled
	return true, nil
}

type fakeInventory struct {
	mu       sync.Mutex
	products map[int64]*entity.Product
}

func newFakeInventory(products ...entity.Product) *fakeInventory {
	inv := &fakeInventory{products: make(map[int64]*entity.Product)}
	for _, p := range products {
		cp := p
		inv.products[p.ID] = &cp
	}
	return inv
}

func (f *fakeInventory) get(id int64) entity.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.products[id]
}

func (f *fakeInventory) snapshot() map[int64]entity.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]entity.Product, len(f.products))
	for id, p := range f.products {
		out[id] = *p
	}
	return out
}

func (f *fakeInventory) restore(snap map[int64]entity.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range snap {
		cp := p
		f.products[id] = &cp
	}
}

func (f *fakeInventory) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[id]
	if !ok {
		return nil, productrepo.ErrNotFound
	}
	cp := *product
	return &cp, nil
}

func (f *fakeInventory) ReduceStock(_ context.Context, _ bun.IDB, id int64, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[id]
	if !ok || product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	return true, nil
}

func (f *fakeInventory) AddSales(_ context.Context, _ bun.IDB, id int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if product, ok := f.products[id]; ok {
		product.SalesCount += qty
	}
	return nil
}

type grant struct {
	userID    int64
	amount    decimal.Decimal
	orderID   int64
	productID int64
}

type fakePoints struct {
	mu     sync.Mutex
	grants []grant
	err    error
}

func (f *fakePoints) GrantOrderConfirm(_ context.Context, userID int64, amount decimal.Decimal, orderID, productID int64) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, grant{userID: userID, amount: amount, orderID: orderID, productID: productID})
	return nil
}

func (f *fakePoints) all() []grant {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]grant, len(f.grants))
	copy(out, f.grants)
	return out
}

// fakeTxRunner emulates transactional rollback by restoring both fakes
// to their pre-transaction snapshot when fn fails. Transactions are
// serialized so a rollback never clobbers a concurrent commit.
type fakeTxRunner struct {
	mu    sync.Mutex
	store *fakeOrderStore
	inv   *fakeInventory
}

func (f *fakeTxRunner) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	orders := f.store.snapshot()
	products := f.inv.snapshot()
	if err := fn(ctx, bun.Tx{}); err != nil {
		f.store.restore(orders)
		f.inv.restore(products)
		return err
	}
	return nil
}

func newTestService(store *fakeOrderStore, inv *fakeInventory, points *fakePoints) *Service {
	return &Service{
		repo:     store,
		products: inv,
		points:   points,
		db:       &fakeTxRunner{store: store, inv: inv},
		logger:   zap.NewNop(),
	}
}

func pendingOrder(productID, userID int64, count string) entity.Order {
	now := time.Now().UTC()
	return entity.Order{
		Number:    newOrderNumber(now),
		Status:    entity.StatusPendingPayment,
		ProductID: productID,
		UserID:    userID,
		Count:     count,
		OrderTime: now,
		CreatedAt: now,
	}
}

func kindOf(t *testing.T, err error) errorbank.Kind {
	t.Helper()
	appErr := &errorbank.AppError{}
	require.ErrorAs(t, err, &appErr)
	return appErr.Kind()
}

func TestCreate(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Title: "Kettle", Price: decimal.RequireFromString("64.50"), Stock: 5})
	svc := newTestService(store, inv, &fakePoints{})

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID:    7,
		UserID:       42,
		Count:        "2",
		ReceiverName: "Ada",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPendingPayment, order.Status)
	assert.Equal(t, "2", order.Count)
	assert.NotEmpty(t, order.Number)
	assert.NotZero(t, order.ID)

	stored := store.get(order.ID)
	assert.Equal(t, order.Number, stored.Number)
	// Stock is untouched until payment.
	assert.Equal(t, 5, inv.get(7).Stock)
}

func TestCreateValidation(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Stock: 5})
	svc := newTestService(store, inv, &fakePoints{})

	tests := []struct {
		name string
		in   CreateInput
		kind errorbank.Kind
	}{
		{name: "zero count", in: CreateInput{ProductID: 7, UserID: 1, Count: "0"}, kind: errorbank.KindBadRequest},
		{name: "negative count", in: CreateInput{ProductID: 7, UserID: 1, Count: "-3"}, kind: errorbank.KindBadRequest},
		{name: "non numeric count", in: CreateInput{ProductID: 7, UserID: 1, Count: "two"}, kind: errorbank.KindBadRequest},
		{name: "missing user", in: CreateInput{ProductID: 7, Count: "1"}, kind: errorbank.KindBadRequest},
		{name: "unknown product", in: CreateInput{ProductID: 99, UserID: 1, Count: "1"}, kind: errorbank.KindNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), test.in)
			require.Error(t, err)
			assert.Equal(t, test.kind, kindOf(t, err))
		})
	}
}

func TestPaySuccess(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Price: decimal.RequireFromString("9.99"), Stock: 10, SalesCount: 3})
	svc := newTestService(store, inv, &fakePoints{})

	order := store.add(pendingOrder(7, 42, "2"))

	paid, err := svc.Pay(context.Background(), order.Number)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPaid, paid.Status)
	assert.False(t, paid.PayTime.IsZero())

	stored := store.get(order.ID)
	assert.Equal(t, entity.StatusPaid, stored.Status)

	product := inv.get(7)
	assert.Equal(t, 8, product.Stock)
	assert.Equal(t, 5, product.SalesCount)
}

func TestPayInsufficientStock(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Stock: 1})
	svc := newTestService(store, inv, &fakePoints{})

	order := store.add(pendingOrder(7, 42, "2"))

	_, err := svc.Pay(context.Background(), order.Number)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))

	// Nothing committed.
	assert.Equal(t, entity.StatusPendingPayment, store.get(order.ID).Status)
	assert.Equal(t, 1, inv.get(7).Stock)
	assert.Equal(t, 0, inv.get(7).SalesCount)
}

func TestPayRejectsNonPending(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Stock: 10})
	svc := newTestService(store, inv, &fakePoints{})

	order := pendingOrder(7, 42, "1")
	order.Status = entity.StatusPaid
	created := store.add(order)

	_, err := svc.Pay(context.Background(), created.Number)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
	assert.Equal(t, 10, inv.get(7).Stock)
}

func TestPayUnknownOrder(t *testing.T) {
	svc := newTestService(newFakeOrderStore(), newFakeInventory(), &fakePoints{})

	_, err := svc.Pay(context.Background(), "20260101000000DEADBEEF")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, kindOf(t, err))
}

func TestPayLosesRaceToCompetingPayment(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Stock: 10})
	svc := newTestService(store, inv, &fakePoints{})

	order := store.add(pendingOrder(7, 42, "3"))

	// A competing payer wins between the status read and the guarded
	// update; the guard must refuse and the stock decrement roll back.
	raced := false
	store.beforeMarkPaid = func() {
		if raced {
			return
		}
		raced = true
		store.mu.Lock()
		store.orders[order.ID].Status = entity.StatusPaid
		store.mu.Unlock()
	}

	_, err := svc.Pay(context.Background(), order.Number)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, kindOf(t, err))
	assert.Equal(t, 10, inv.get(7).Stock)
}

func TestPayConcurrentSingleWinner(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Stock: 1})
	svc := newTestService(store, inv, &fakePoints{})

	first := store.add(pendingOrder(7, 1, "1"))
	second := store.add(pendingOrder(7, 2, "1"))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, number := range []string{first.Number, second.Number} {
		wg.Add(1)
		go func(number string) {
			defer wg.Done()
			_, err := svc.Pay(context.Background(), number)
			results <- err
		}(number)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, 0, inv.get(7).Stock)
}

func TestShip(t *testing.T) {
	store := newFakeOrderStore()
	svc := newTestService(store, newFakeInventory(), &fakePoints{})

	order := pendingOrder(7, 42, "1")
	order.Status = entity.StatusPaid
	created := store.add(order)

	err := svc.Ship(context.Background(), ShipInput{
		OrderID:         created.ID,
		TrackingNumber:  "SF123456",
		ShippingCompany: "SF Express",
	})
	require.NoError(t, err)

	stored := store.get(created.ID)
	assert.Equal(t, entity.StatusShipped, stored.Status)
	assert.Equal(t, "SF123456", stored.TrackingNumber)
	assert.False(t, stored.ShippingTime.IsZero())
}

func TestShipGuards(t *testing.T) {
	store := newFakeOrderStore()
	svc := newTestService(store, newFakeInventory(), &fakePoints{})

	pending := store.add(pendingOrder(7, 42, "1"))

	t.Run("tracking number required", func(t *testing.T) {
		err := svc.Ship(context.Background(), ShipInput{OrderID: pending.ID})
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
	})

	t.Run("unpaid order refused", func(t *testing.T) {
		err := svc.Ship(context.Background(), ShipInput{OrderID: pending.ID, TrackingNumber: "SF1"})
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
		assert.Equal(t, entity.StatusPendingPayment, store.get(pending.ID).Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		err := svc.Ship(context.Background(), ShipInput{OrderID: 999, TrackingNumber: "SF1"})
		require.Error(t, err)
		assert.Equal(t, errorbank.KindNotFound, kindOf(t, err))
	})
}

func TestConfirmReceiptGrantsPoints(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Price: decimal.RequireFromString("9.99"), Stock: 10})
	points := &fakePoints{}
	svc := newTestService(store, inv, points)

	order := pendingOrder(7, 42, "2")
	order.Status = entity.StatusShipped
	created := store.add(order)

	require.NoError(t, svc.ConfirmReceipt(context.Background(), created.ID))
	assert.Equal(t, entity.StatusAwaitingReview, store.get(created.ID).Status)

	grants := points.all()
	require.Len(t, grants, 1)
	assert.Equal(t, int64(42), grants[0].userID)
	assert.Equal(t, created.ID, grants[0].orderID)
	// 9.99 * 2 must come out exact, not 19.979999.
	assert.True(t, grants[0].amount.Equal(decimal.RequireFromString("19.98")),
		"got %s", grants[0].amount)
}

func TestConfirmReceiptOnlyShipped(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Price: decimal.NewFromInt(5), Stock: 10})
	points := &fakePoints{}
	svc := newTestService(store, inv, points)

	for _, status := range []entity.Status{
		entity.StatusPendingPayment,
		entity.StatusPaid,
		entity.StatusAwaitingReview,
		entity.StatusCancelled,
	} {
		order := pendingOrder(7, 42, "1")
		order.Status = status
		created := store.add(order)

		err := svc.ConfirmReceipt(context.Background(), created.ID)
		require.Error(t, err, "status %s", status)
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
		assert.Equal(t, status, store.get(created.ID).Status)
	}

	assert.Empty(t, points.all())
}

func TestConfirmReceiptDoubleConfirm(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Price: decimal.NewFromInt(5), Stock: 10})
	points := &fakePoints{}
	svc := newTestService(store, inv, points)

	order := pendingOrder(7, 42, "1")
	order.Status = entity.StatusShipped
	created := store.add(order)

	require.NoError(t, svc.ConfirmReceipt(context.Background(), created.ID))

	err := svc.ConfirmReceipt(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))

	// Exactly one grant despite the retry.
	assert.Len(t, points.all(), 1)
}

func TestConfirmReceiptBadCountStillConfirms(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Price: decimal.NewFromInt(5), Stock: 10})
	points := &fakePoints{}
	svc := newTestService(store, inv, points)

	order := pendingOrder(7, 42, "not-a-number")
	order.Status = entity.StatusShipped
	created := store.add(order)

	require.NoError(t, svc.ConfirmReceipt(context.Background(), created.ID))
	assert.Equal(t, entity.StatusAwaitingReview, store.get(created.ID).Status)
	assert.Empty(t, points.all())
}

func TestConfirmReceiptUnknownOrder(t *testing.T) {
	svc := newTestService(newFakeOrderStore(), newFakeInventory(), &fakePoints{})

	err := svc.ConfirmReceipt(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, kindOf(t, err))
}

func TestCancel(t *testing.T) {
	store := newFakeOrderStore()
	inv := newFakeInventory(entity.Product{ID: 7, Stock: 3})
	svc := newTestService(store, inv, &fakePoints{})

	t.Run("admin cancels paid order", func(t *testing.T) {
		order := pendingOrder(7, 42, "1")
		order.Status = entity.StatusPaid
		created := store.add(order)

		require.NoError(t, svc.Cancel(context.Background(), created.ID))
		assert.Equal(t, entity.StatusCancelled, store.get(created.ID).Status)
		// Cancelling after payment does not restore stock.
		assert.Equal(t, 3, inv.get(7).Stock)
	})

	t.Run("shipped order refused", func(t *testing.T) {
		order := pendingOrder(7, 42, "1")
		order.Status = entity.StatusShipped
		created := store.add(order)

		err := svc.Cancel(context.Background(), created.ID)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
		assert.Equal(t, entity.StatusShipped, store.get(created.ID).Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		err := svc.Cancel(context.Background(), 999)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindNotFound, kindOf(t, err))
	})
}

func TestCancelByUser(t *testing.T) {
	store := newFakeOrderStore()
	svc := newTestService(store, newFakeInventory(), &fakePoints{})

	t.Run("own pending order", func(t *testing.T) {
		created := store.add(pendingOrder(7, 42, "1"))

		require.NoError(t, svc.CancelByUser(context.Background(), created.ID, 42))
		assert.Equal(t, entity.StatusCancelled, store.get(created.ID).Status)
	})

	t.Run("someone else's order", func(t *testing.T) {
		created := store.add(pendingOrder(7, 42, "1"))

		err := svc.CancelByUser(context.Background(), created.ID, 43)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
		assert.Equal(t, entity.StatusPendingPayment, store.get(created.ID).Status)
	})

	t.Run("own paid order refused", func(t *testing.T) {
		order := pendingOrder(7, 42, "1")
		order.Status = entity.StatusPaid
		created := store.add(order)

		err := svc.CancelByUser(context.Background(), created.ID, 42)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
		assert.Equal(t, entity.StatusPaid, store.get(created.ID).Status)
	})
}

func TestListByUserValidatesStatus(t *testing.T) {
	store := newFakeOrderStore()
	svc := newTestService(store, newFakeInventory(), &fakePoints{})

	store.add(pendingOrder(7, 42, "1"))
	paid := pendingOrder(7, 42, "1")
	paid.Status = entity.StatusPaid
	store.add(paid)
	store.add(pendingOrder(7, 43, "1"))

	orders, err := svc.ListByUser(context.Background(), 42, "")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = svc.ListByUser(context.Background(), 42, entity.StatusPaid)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = svc.ListByUser(context.Background(), 42, "9")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, kindOf(t, err))
}

func TestNewOrderNumber(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	number := newOrderNumber(at)

	assert.Len(t, number, 22)
	assert.Equal(t, "20260314092653", number[:14])

	// Two numbers minted in the same second must still differ.
	assert.NotEqual(t, number, newOrderNumber(at))
}
