//go:build integration

package repository_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"shopsphere/internal/assets"
	"shopsphere/internal/database"
	"shopsphere/internal/models"
	"shopsphere/internal/repository"
	"shopsphere/internal/service"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("shopsphere_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.ConnectURL(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	applied, err := database.Migrate(ctx, pool, logger)
	require.NoError(t, err)
	require.Len(t, applied, 4)

	applied, err = database.Migrate(ctx, pool, logger)
	require.NoError(t, err)
	require.Empty(t, applied)

	return pool
}

func newProduct(t *testing.T, store repository.Store, slug, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        slug,
		Slug:        slug,
		SKU:         "SKU-" + slug,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsAvailable: true,
	}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func TestPostgresStore(t *testing.T) {
	pool := setupPostgres(t)
	store := repository.NewStore(pool)
	ctx := context.Background()

	t.Run("duplicate slug", func(t *testing.T) {
		newProduct(t, store, "lamp", "10.00", 1)
		err := store.Products().Create(ctx, &models.Product{
			Name: "Other", Slug: "lamp", SKU: "SKU-other", Price: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("concurrent stock decrements never oversell", func(t *testing.T) {
		p := newProduct(t, store, "limited", "5.00", 10)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			refused   int
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Products().UpdateStock(ctx, p.ID, -1)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, repository.ErrNotEnough):
					refused++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)
		assert.Equal(t, 10, refused)
		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		p := newProduct(t, store, "rollback", "5.00", 3)
		boom := errors.New("boom")

		err := store.WithTx(ctx, func(tx repository.Store) error {
			if _, err := tx.Products().UpdateStock(ctx, p.ID, -3); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
	})

	t.Run("orders and payments", func(t *testing.T) {
		p := newProduct(t, store, "kettle", "25.00", 4)
		resolver := assets.Resolver{CloudinaryCloud: "demo"}
		orders := service.NewOrderService(store, resolver, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

		order, err := orders.Create(ctx, 7, service.CreateOrderInput{
			ShippingAddress: "1 Main St",
			ShippingCity:    "Springfield",
			ShippingCountry: "US",
			ShippingPhone:   "555-0100",
			Items:           []service.OrderItemInput{{ProductID: p.ID, Quantity: 2}},
		})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("50.00").Equal(order.Subtotal))
		require.Len(t, order.Items, 1)

		ops, err := store.StockOperations().ListByOrder(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, 2, ops[0].StockAfter)

		payment := &models.Payment{
			Reference: "PAY-FIRST",
			OrderID:   order.ID,
			UserID:    7,
			Amount:    order.Total,
			Status:    models.PaymentFailed,
		}
		require.NoError(t, store.Payments().Upsert(ctx, payment))

		retry := &models.Payment{
			Reference: "PAY-SECOND",
			OrderID:   order.ID,
			UserID:    7,
			Amount:    order.Total,
			Status:    models.PaymentSuccessful,
		}
		require.NoError(t, store.Payments().Upsert(ctx, retry))
		assert.Equal(t, "PAY-FIRST", retry.Reference)
		assert.Equal(t, payment.ID, retry.ID)

		got, err := store.Payments().GetByOrderID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSuccessful, got.Status)
		assert.Equal(t, "USD", got.Currency)

		cancelled, err := orders.Cancel(ctx, 7, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

		stock, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, stock.Stock)
	})

	t.Run("stock operations", func(t *testing.T) {
		p := newProduct(t, store, "ledger", "1.00", 0)

		err := store.StockOperations().Create(ctx, &models.StockOperation{
			ProductID: 99999, OperationType: models.StockIncoming, ChangeQuant: 1, StockAfter: 1,
		})
		assert.ErrorIs(t, err, repository.ErrProductNotFound)

		for i, change := range []int{5, -2} {
			typ := models.StockIncoming
			if change < 0 {
				typ = models.StockAdjustment
			}
			op := &models.StockOperation{ProductID: p.ID, OperationType: typ, ChangeQuant: change, StockAfter: 5 + i*-2}
			require.NoError(t, store.StockOperations().Create(ctx, op))
			assert.NotZero(t, op.ID)
		}

		ops, err := store.StockOperations().ListByProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, ops, 2)
		assert.Equal(t, -2, ops[0].ChangeQuant)
		assert.Nil(t, ops[0].OrderID)
	})
}
