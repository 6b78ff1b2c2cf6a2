package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shopsphere/internal/models"
)

type wishlistRepo struct {
	db DBTX
}

func NewWishlistRepository(db DBTX) WishlistRepository {
	return &wishlistRepo{db: db}
}

func (r *wishlistRepo) Add(ctx context.Context, item *models.WishlistItem) error {
	if item.UserID <= 0 || item.ProductID <= 0 {
		return fmt.Errorf("%w: user and product required", ErrInvalidInput)
	}

	sql := `INSERT INTO wishlist_items (user_id, product_id)
	VALUES ($1, $2)
	RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql, item.UserID, item.ProductID).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: product %d already in wishlist", ErrDuplicate, item.ProductID)
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}

	return nil
}

func (r *wishlistRepo) Get(ctx context.Context, userID, productID int) (*models.WishlistItem, error) {
	sql := `SELECT id, user_id, product_id, created_at
	FROM wishlist_items
	WHERE user_id = $1 AND product_id = $2
	`

	var item models.WishlistItem
	err := r.db.QueryRow(ctx, sql, userID, productID).Scan(&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wishlist item: %w", err)
	}

	return &item, nil
}

// ListByUser returns the user's items newest first with their products loaded.
func (r *wishlistRepo) ListByUser(ctx context.Context, userID int) ([]models.WishlistItem, error) {
	sql := `SELECT w.id, w.user_id, w.product_id, w.created_at, ` +
		prefixed("p", productColumns) + `
	FROM wishlist_items w
	JOIN products p ON p.id = w.product_id
	WHERE w.user_id = $1
	ORDER BY w.created_at DESC, w.id DESC
	`

	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist of user %d: %w", userID, err)
	}
	defer rows.Close()

	var items []models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		var p models.Product
		err := rows.Scan(append([]any{&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt}, productFields(&p)...)...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		item.Product = &p
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return items, nil
}

func (r *wishlistRepo) Remove(ctx context.Context, userID, productID int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *wishlistRepo) DeleteByID(ctx context.Context, userID, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wishlist item %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *wishlistRepo) Clear(ctx context.Context, userID int) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear wishlist of user %d: %w", userID, err)
	}

	return result.RowsAffected(), nil
}
