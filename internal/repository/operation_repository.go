package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shopsphere/internal/models"
)

type stockOperationRepo struct {
	db DBTX
}

func NewStockOperationRepository(db DBTX) StockOperationRepository {
	return &stockOperationRepo{db: db}
}

const stockOperationColumns = `id, product_id, order_id, operation_type, change_quant, stock_after, note, created_at`

func validateStockOperation(o *models.StockOperation) error {
	if o == nil {
		return fmt.Errorf("%w: operation cannot be nil", ErrInvalidInput)
	}
	if o.ProductID <= 0 {
		return fmt.Errorf("%w: product ID must be positive", ErrInvalidInput)
	}
	if o.ChangeQuant == 0 {
		return fmt.Errorf("%w: the variable quantity cannot be 0", ErrInvalidInput)
	}
	if !o.OperationType.Valid() {
		return fmt.Errorf("%w: invalid operation type '%s'", ErrInvalidInput, o.OperationType)
	}
	if o.StockAfter < 0 {
		return fmt.Errorf("%w: stock after operation cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (r *stockOperationRepo) Create(ctx context.Context, o *models.StockOperation) error {
	if err := validateStockOperation(o); err != nil {
		return err
	}

	var orderID any
	if o.OrderID != nil && *o.OrderID > 0 {
		orderID = *o.OrderID
	}

	sql := `INSERT INTO stock_operations (
		product_id,
		order_id,
		operation_type,
		change_quant,
		stock_after,
		note
	) VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql,
		o.ProductID,
		orderID,
		o.OperationType,
		o.ChangeQuant,
		o.StockAfter,
		o.Note,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: product %d", ErrProductNotFound, o.ProductID)
		}
		return fmt.Errorf("failed to create stock operation: %w", err)
	}
	return nil
}

func (r *stockOperationRepo) ListByProduct(ctx context.Context, productID int) ([]models.StockOperation, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT ` + stockOperationColumns + ` FROM stock_operations
	WHERE product_id = $1
	ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, sql, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock operations by product ID %d: %w", productID, err)
	}

	return collectStockOperations(rows)
}

func (r *stockOperationRepo) ListByOrder(ctx context.Context, orderID int) ([]models.StockOperation, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT ` + stockOperationColumns + ` FROM stock_operations
	WHERE order_id = $1
	ORDER BY id
	`
	rows, err := r.db.Query(ctx, sql, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock operations by order ID %d: %w", orderID, err)
	}

	return collectStockOperations(rows)
}

func collectStockOperations(rows pgx.Rows) ([]models.StockOperation, error) {
	defer rows.Close()

	var operations []models.StockOperation
	for rows.Next() {
		var o models.StockOperation
		err := rows.Scan(
			&o.ID,
			&o.ProductID,
			&o.OrderID,
			&o.OperationType,
			&o.ChangeQuant,
			&o.StockAfter,
			&o.Note,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock operation: %w", err)
		}
		operations = append(operations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete rows iteration: %w", err)
	}

	return operations, nil
}
