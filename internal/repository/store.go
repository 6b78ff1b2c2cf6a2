package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Products() ProductRepository    { return NewProductRepository(s.db) }
func (s *pgStore) Categories() CategoryRepository { return NewCategoryRepository(s.db) }
func (s *pgStore) Brands() BrandRepository        { return NewBrandRepository(s.db) }
func (s *pgStore) ShippingOptions() ShippingOptionRepository {
	return NewShippingOptionRepository(s.db)
}
func (s *pgStore) Orders() OrderRepository               { return NewOrderRepository(s.db) }
func (s *pgStore) Payments() PaymentRepository           { return NewPaymentRepository(s.db) }
func (s *pgStore) Reviews() ReviewRepository             { return NewReviewRepository(s.db) }
func (s *pgStore) Wishlist() WishlistRepository          { return NewWishlistRepository(s.db) }
func (s *pgStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *pgStore) StockOperations() StockOperationRepository {
	return NewStockOperationRepository(s.db)
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgStore{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
