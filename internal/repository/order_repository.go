package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"shopsphere/internal/models"
)

type orderRepo struct {
	db DBTX
}

func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `
	o.id,
	o.user_id,
	o.status,
	o.payment_status,
	o.shipping_address,
	o.shipping_city,
	o.shipping_country,
	o.shipping_phone,
	o.subtotal,
	o.shipping_cost,
	o.tax,
	o.total,
	o.notes,
	o.created_at,
	o.updated_at`

func orderFields(o *models.Order) []any {
	return []any{
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.ShippingAddress,
		&o.ShippingCity,
		&o.ShippingCountry,
		&o.ShippingPhone,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Total,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order cannot be nil", ErrInvalidInput)
	}
	if order.UserID <= 0 {
		return fmt.Errorf("%w: user ID cannot be empty", ErrInvalidInput)
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.OrderPaymentPending
	}

	sql := `INSERT INTO orders (
		user_id,
		status,
		payment_status,
		shipping_address,
		shipping_city,
		shipping_country,
		shipping_phone,
		subtotal,
		shipping_cost,
		tax,
		total,
		notes,
		created_at,
		updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	RETURNING id
	`

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	err := r.db.QueryRow(ctx, sql,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		order.ShippingAddress,
		order.ShippingCity,
		order.ShippingCountry,
		order.ShippingPhone,
		order.Subtotal,
		order.ShippingCost,
		order.Tax,
		order.Total,
		order.Notes,
		now,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *orderRepo) AddItem(ctx context.Context, item *models.OrderItem) error {
	if item.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	if item.OrderID <= 0 {
		return fmt.Errorf("order ID cannot be empty: %w", ErrInvalidInput)
	}

	sql := `INSERT INTO order_items (
		order_id,
		product_id,
		product_name,
		product_price,
		product_image,
		product_slug,
		quantity,
		created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`

	item.CreatedAt = time.Now()
	err := r.db.QueryRow(ctx, sql,
		item.OrderID,
		item.ProductID,
		item.ProductName,
		item.ProductPrice,
		item.ProductImage,
		item.ProductSlug,
		item.Quantity,
		item.CreatedAt,
	).Scan(&item.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

func (r *orderRepo) UpdateTotals(ctx context.Context, order *models.Order) error {
	sql := `UPDATE orders SET
		subtotal = $1,
		shipping_cost = $2,
		tax = $3,
		total = $4,
		updated_at = $5
	WHERE id = $6
	`

	order.UpdatedAt = time.Now()
	result, err := r.db.Exec(ctx, sql,
		order.Subtotal,
		order.ShippingCost,
		order.Tax,
		order.Total,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("update totals order %d: %w", order.ID, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int, status models.OrderStatus, paymentStatus models.OrderPaymentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status '%s'", ErrInvalidInput, status)
	}

	sql := `UPDATE orders
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.Exec(ctx, sql, status, paymentStatus, id)
	if err != nil {
		return fmt.Errorf("update status order %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *orderRepo) getOne(ctx context.Context, id int, suffix string) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1` + suffix

	var order models.Order
	if err := r.db.QueryRow(ctx, sql, id).Scan(orderFields(&order)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	return &order, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int) (*models.Order, error) {
	return r.getOne(ctx, id, "")
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id int) (*models.Order, error) {
	return r.getOne(ctx, id, " FOR UPDATE")
}

const orderWithItemsSQL = `SELECT ` + orderColumns + `,
	oi.id,
	oi.product_id,
	oi.product_name,
	oi.product_price,
	oi.product_image,
	oi.product_slug,
	oi.quantity,
	oi.created_at
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id
	`

// collectOrders folds order/item join rows into orders, preserving row order.
func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	var orders []models.Order
	index := make(map[int]int)

	for rows.Next() {
		var current models.Order
		var (
			itemID       pgtype.Int4
			productID    pgtype.Int4
			productName  pgtype.Text
			productPrice decimal.NullDecimal
			productImage pgtype.Text
			productSlug  pgtype.Text
			quantity     pgtype.Int4
			createdAt    pgtype.Timestamptz
		)

		fields := append(orderFields(&current),
			&itemID,
			&productID,
			&productName,
			&productPrice,
			&productImage,
			&productSlug,
			&quantity,
			&createdAt,
		)
		if err := rows.Scan(fields...); err != nil {
			return nil, fmt.Errorf("scan order/item: %w", err)
		}

		pos, seen := index[current.ID]
		if !seen {
			current.Items = []models.OrderItem{}
			orders = append(orders, current)
			pos = len(orders) - 1
			index[current.ID] = pos
		}

		if !itemID.Valid {
			continue
		}
		item := models.OrderItem{
			ID:           int(itemID.Int32),
			OrderID:      current.ID,
			ProductName:  productName.String,
			ProductPrice: productPrice.Decimal,
			Quantity:     int(quantity.Int32),
			CreatedAt:    createdAt.Time,
		}
		if productID.Valid {
			id := int(productID.Int32)
			item.ProductID = &id
		}
		if productImage.Valid {
			item.ProductImage = &productImage.String
		}
		if productSlug.Valid {
			item.ProductSlug = &productSlug.String
		}
		orders[pos].Items = append(orders[pos].Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return orders, nil
}

func (r *orderRepo) GetOrderWithItems(ctx context.Context, id int) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}

	rows, err := r.db.Query(ctx, orderWithItemsSQL+`WHERE o.id = $1 ORDER BY oi.id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order with items %d: %w", id, err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}

	return &orders[0], nil
}

func (r *orderRepo) GetByUserID(ctx context.Context, userID int) ([]models.Order, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := orderWithItemsSQL + `WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC, oi.id`

	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders by user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *orderRepo) ListItems(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	sql := `SELECT
		id,
		order_id,
		product_id,
		product_name,
		product_price,
		product_image,
		product_slug,
		quantity,
		created_at
	FROM order_items
	WHERE order_id = $1
	ORDER BY id
	`

	rows, err := r.db.Query(ctx, sql, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductPrice,
			&item.ProductImage,
			&item.ProductSlug,
			&item.Quantity,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return items, nil
}
