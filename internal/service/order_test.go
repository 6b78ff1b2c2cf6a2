package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/repository"
	"shopsphere/internal/repository/repotest"
)

var testResolver = assets.Resolver{CloudinaryCloud: "demo", LocalBaseURL: "http://localhost:8000/media/"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []int
	paid      []string
	changed   []models.OrderStatus
	err       error
}

func (n *recordingNotifier) OrderConfirmed(_ context.Context, o *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, o.ID)
	return n.err
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, _ *models.Order, p *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, p.Reference)
	return n.err
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, o *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, o.Status)
	return n.err
}

type recordingInvalidator struct {
	ids []int
}

func (i *recordingInvalidator) InvalidateProducts(_ context.Context, ids ...int) {
	i.ids = append(i.ids, ids...)
}

func createProduct(t *testing.T, store repository.Store, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Slug:        slugify(name),
		SKU:         "SKU-" + slugify(name),
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsAvailable: true,
	}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		case r == ' ':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func orderInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		ShippingAddress: "1 Main St",
		ShippingCity:    "Springfield",
		ShippingCountry: "US",
		ShippingPhone:   "555-0100",
		Items:           items,
	}
}

func stockOf(t *testing.T, store repository.Store, id int) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestCreateOrderComputesTotals(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		qty      int
		subtotal string
		shipping string
		tax      string
		total    string
	}{
		{name: "free shipping", price: "30.00", qty: 2, subtotal: "60", shipping: "0", tax: "6", total: "66"},
		{name: "flat shipping", price: "10.00", qty: 2, subtotal: "20", shipping: "5", tax: "2", total: "27"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := repotest.New()
			notifier := &recordingNotifier{}
			svc := NewOrderService(store, testResolver, notifier, nil, discardLogger())

			p := createProduct(t, store, "Widget", tt.price, 10)

			order, err := svc.Create(ctx, 7, orderInput(OrderItemInput{ProductID: p.ID, Quantity: tt.qty}))
			require.NoError(t, err)

			assert.Equal(t, models.OrderStatusPending, order.Status)
			assert.Equal(t, models.OrderPaymentPending, order.PaymentStatus)
			assert.True(t, decimal.RequireFromString(tt.subtotal).Equal(order.Subtotal), order.Subtotal.String())
			assert.True(t, decimal.RequireFromString(tt.shipping).Equal(order.ShippingCost))
			assert.True(t, decimal.RequireFromString(tt.tax).Equal(order.Tax))
			assert.True(t, decimal.RequireFromString(tt.total).Equal(order.Total))
			assert.True(t, order.Total.Equal(order.Subtotal.Add(order.ShippingCost).Add(order.Tax)))

			assert.Equal(t, 10-tt.qty, stockOf(t, store, p.ID))
			assert.Equal(t, []int{order.ID}, notifier.confirmed)

			stored, err := svc.Get(ctx, 7, order.ID)
			require.NoError(t, err)
			require.Len(t, stored.Items, 1)
			assert.Equal(t, "Widget", stored.Items[0].ProductName)
			assert.True(t, order.Total.Equal(stored.Total))
		})
	}
}

func TestCreateOrderSnapshotsPrimaryImage(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	p := createProduct(t, store, "Camera", "199.99", 3)
	require.NoError(t, store.Products().AddImage(ctx, &models.ProductImage{
		ProductID: p.ID, Image: assets.Ref{Provider: assets.ProviderCloudinary, Key: "products/side"}, DisplayOrder: 0,
	}))
	require.NoError(t, store.Products().AddImage(ctx, &models.ProductImage{
		ProductID: p.ID, Image: assets.Ref{Provider: assets.ProviderCloudinary, Key: "products/front"}, IsPrimary: true, DisplayOrder: 2,
	}))

	order, err := svc.Create(ctx, 1, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	item := order.Items[0]
	require.NotNil(t, item.ProductImage)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/products/front", *item.ProductImage)
	require.NotNil(t, item.ProductSlug)
	assert.Equal(t, p.Slug, *item.ProductSlug)
	assert.True(t, p.Price.Equal(item.ProductPrice))

	p.Price = decimal.RequireFromString("249.99")
	require.NoError(t, store.Products().Update(ctx, p))

	stored, err := svc.Get(ctx, 1, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "199.99", stored.Items[0].ProductPrice.StringFixed(2))
}

func TestCreateOrderInsufficientStockChangesNothing(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	notifier := &recordingNotifier{}
	svc := NewOrderService(store, testResolver, notifier, nil, discardLogger())

	a := createProduct(t, store, "Chair", "40.00", 5)
	b := createProduct(t, store, "Table", "90.00", 1)

	_, err := svc.Create(ctx, 1, orderInput(
		OrderItemInput{ProductID: a.ID, Quantity: 2},
		OrderItemInput{ProductID: b.ID, Quantity: 2},
	))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Index)
	assert.Equal(t, b.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, "Not enough stock for Table. Available: 1", stockErr.Error())

	assert.Equal(t, 5, stockOf(t, store, a.ID))
	assert.Equal(t, 1, stockOf(t, store, b.ID))

	orders, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, notifier.confirmed)
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	_, err := svc.Create(ctx, 1, orderInput())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Order must have at least one item", verr.Fields["items"])

	_, err = svc.Create(ctx, 1, orderInput(OrderItemInput{ProductID: 404, Quantity: 1}))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Product 404 not found", verr.Fields["items[0].product_id"])

	_, err = svc.Create(ctx, 1, orderInput(OrderItemInput{ProductID: 1, Quantity: 0}))
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items[0].quantity")
}

func TestCreateOrderSwallowsNotificationFailure(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	invalidator := &recordingInvalidator{}
	svc := NewOrderService(store, testResolver, notifier, invalidator, discardLogger())

	p := createProduct(t, store, "Lamp", "15.00", 2)

	order, err := svc.Create(ctx, 3, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, []int{p.ID}, invalidator.ids)
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	p := createProduct(t, store, "Console", "299.00", 3)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(user int) {
			defer wg.Done()
			_, err := svc.Create(ctx, user, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i + 1)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 0, stockOf(t, store, p.ID))
}

func TestCancelOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	a := createProduct(t, store, "Pen", "2.00", 10)
	b := createProduct(t, store, "Notebook", "6.00", 10)

	order, err := svc.Create(ctx, 5, orderInput(
		OrderItemInput{ProductID: a.ID, Quantity: 3},
		OrderItemInput{ProductID: b.ID, Quantity: 4},
	))
	require.NoError(t, err)

	require.NoError(t, store.Products().Delete(ctx, b.ID))

	cancelled, err := svc.Cancel(ctx, 5, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, models.OrderPaymentPending, cancelled.PaymentStatus)
	assert.Equal(t, 10, stockOf(t, store, a.ID))
	require.Len(t, cancelled.Items, 2)
	assert.Nil(t, cancelled.Items[1].ProductID)

	_, err = svc.Cancel(ctx, 5, order.ID)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "cancelled", conflict.State)
	assert.Equal(t, `Cannot cancel order with status "cancelled".`, conflict.Message)
	assert.Equal(t, 10, stockOf(t, store, a.ID))
}

func TestCancelRejectsShippedAndForeignOrders(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	p := createProduct(t, store, "Kettle", "25.00", 4)
	order, err := svc.Create(ctx, 1, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, 2, order.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusShipped, models.OrderPaymentPaid))

	_, err = svc.Cancel(ctx, 1, order.ID)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "shipped", conflict.State)
	assert.Equal(t, 3, stockOf(t, store, p.ID))
}

func TestUpdateStatusFollowsFulfillmentFlow(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	notifier := &recordingNotifier{}
	svc := NewOrderService(store, testResolver, notifier, nil, discardLogger())

	p := createProduct(t, store, "Blender", "60.00", 4)
	order, err := svc.Create(ctx, 1, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)

	for _, status := range []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered} {
		updated, err := svc.UpdateStatus(ctx, order.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}
	assert.Equal(t, []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered}, notifier.changed)

	_, err = svc.UpdateStatus(ctx, order.ID, "lost")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOrderLifecycleWritesStockLedger(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	p := createProduct(t, store, "Mug", "8.00", 6)
	order, err := svc.Create(ctx, 3, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 2}))
	require.NoError(t, err)

	ops, err := store.StockOperations().ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.StockOutgoing, ops[0].OperationType)
	assert.Equal(t, -2, ops[0].ChangeQuant)
	assert.Equal(t, 4, ops[0].StockAfter)

	_, err = svc.Cancel(ctx, 3, order.ID)
	require.NoError(t, err)

	ops, err = store.StockOperations().ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, models.StockIncoming, ops[1].OperationType)
	assert.Equal(t, 2, ops[1].ChangeQuant)
	assert.Equal(t, 6, ops[1].StockAfter)
}

func TestFailedOrderLeavesNoLedgerEntries(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewOrderService(store, testResolver, nil, nil, discardLogger())

	a := createProduct(t, store, "Plate", "4.00", 5)
	b := createProduct(t, store, "Bowl", "3.00", 1)
	_, err := svc.Create(ctx, 3, orderInput(
		OrderItemInput{ProductID: a.ID, Quantity: 2},
		OrderItemInput{ProductID: b.ID, Quantity: 2},
	))
	require.Error(t, err)

	ops, err := store.StockOperations().ListByProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ops)
}
