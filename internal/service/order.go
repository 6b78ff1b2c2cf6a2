// Package service holds the order engine, the payment simulator and the
// customer-facing catalog, review, wishlist and notification operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/pricing"
	"shopsphere/internal/repository"
)

// Notifier delivers order and payment events to the customer. Callers log
// its errors and never propagate them.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
	PaymentConfirmed(ctx context.Context, order *models.Order, payment *models.Payment) error
	OrderStatusChanged(ctx context.Context, order *models.Order) error
}

// ProductInvalidator drops cached catalog entries after stock changes.
type ProductInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...int)
}

type OrderItemInput struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderInput struct {
	ShippingAddress string           `json:"shipping_address" validate:"required"`
	ShippingCity    string           `json:"shipping_city" validate:"required,max=100"`
	ShippingCountry string           `json:"shipping_country" validate:"required,max=100"`
	ShippingPhone   string           `json:"shipping_phone" validate:"required,max=20"`
	Notes           string           `json:"notes"`
	Items           []OrderItemInput `json:"items" validate:"dive"`
}

// statusFlow lists the fulfillment transitions staff may apply.
var statusFlow = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:    models.OrderStatusProcessing,
	models.OrderStatusProcessing: models.OrderStatusShipped,
	models.OrderStatusShipped:    models.OrderStatusDelivered,
}

type OrderService struct {
	store       repository.Store
	resolver    assets.Resolver
	notifier    Notifier
	invalidator ProductInvalidator
	logger      *slog.Logger
}

// NewOrderService wires the order engine. notifier and invalidator may be nil.
func NewOrderService(store repository.Store, resolver assets.Resolver, notifier Notifier, invalidator ProductInvalidator, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:       store,
		resolver:    resolver,
		notifier:    notifier,
		invalidator: invalidator,
		logger:      logger.With("component", "orders"),
	}
}

func validateOrderInput(in CreateOrderInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		verr.add("shipping_address", "This field is required.")
	}
	if strings.TrimSpace(in.ShippingCity) == "" {
		verr.add("shipping_city", "This field is required.")
	}
	if strings.TrimSpace(in.ShippingCountry) == "" {
		verr.add("shipping_country", "This field is required.")
	}
	if strings.TrimSpace(in.ShippingPhone) == "" {
		verr.add("shipping_phone", "This field is required.")
	}
	if len(in.Items) == 0 {
		verr.add("items", "Order must have at least one item")
	}
	for i, item := range in.Items {
		if item.ProductID <= 0 {
			verr.add(fmt.Sprintf("items[%d].product_id", i), "A valid product id is required.")
		}
		if item.Quantity < 1 {
			verr.add(fmt.Sprintf("items[%d].quantity", i), "Quantity must be at least 1.")
		}
	}
	return verr.orNil()
}

// Create places an order in one transaction: every product is checked before
// the first write, then each item is snapshotted and its stock decremented with
// a conditional update. Any failure rolls the whole order back.
func (s *OrderService) Create(ctx context.Context, userID int, in CreateOrderInput) (*models.Order, error) {
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		products := make([]*models.Product, len(in.Items))
		for i, item := range in.Items {
			p, err := tx.Products().GetByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return invalid(fmt.Sprintf("items[%d].product_id", i), fmt.Sprintf("Product %d not found", item.ProductID))
				}
				return err
			}
			if item.Quantity > p.Stock {
				return &InsufficientStockError{Index: i, ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: item.Quantity}
			}
			products[i] = p
		}

		o := &models.Order{
			UserID:          userID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.OrderPaymentPending,
			ShippingAddress: in.ShippingAddress,
			ShippingCity:    in.ShippingCity,
			ShippingCountry: in.ShippingCountry,
			ShippingPhone:   in.ShippingPhone,
			Notes:           in.Notes,
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}

		o.Items = make([]models.OrderItem, 0, len(in.Items))
		for i, item := range in.Items {
			p := products[i]

			snapshot, err := s.snapshot(ctx, tx, o.ID, p, item.Quantity)
			if err != nil {
				return err
			}
			if err := tx.Orders().AddItem(ctx, snapshot); err != nil {
				return err
			}

			stock, err := tx.Products().UpdateStock(ctx, p.ID, -item.Quantity)
			if err != nil {
				if errors.Is(err, repository.ErrNotEnough) {
					return &InsufficientStockError{Index: i, ProductID: p.ID, Name: p.Name, Available: stock, Requested: item.Quantity}
				}
				return err
			}
			if err := recordStock(ctx, tx, p.ID, o.ID, models.StockOutgoing, -item.Quantity, stock); err != nil {
				return err
			}
			o.Items = append(o.Items, *snapshot)
		}

		pricing.Calculate(o.Items).Apply(o)
		if err := tx.Orders().UpdateTotals(ctx, o); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total.StringFixed(2))
	s.invalidate(ctx, order.Items)
	if s.notifier != nil {
		if err := s.notifier.OrderConfirmed(ctx, order); err != nil {
			s.logger.Warn("order confirmation failed", "order_id", order.ID, "error", err)
		}
	}

	return order, nil
}

func (s *OrderService) snapshot(ctx context.Context, tx repository.Store, orderID int, p *models.Product, quantity int) (*models.OrderItem, error) {
	images, err := tx.Products().ListImages(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	productID, slug := p.ID, p.Slug
	item := &models.OrderItem{
		OrderID:      orderID,
		ProductID:    &productID,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		ProductSlug:  &slug,
		Quantity:     quantity,
	}
	if primary := models.PrimaryImage(images); primary != nil {
		if url := s.resolver.URL(primary.Image); url != "" {
			item.ProductImage = &url
		}
	}

	return item, nil
}

// Cancel restores stock for every item whose product still exists and marks
// the order cancelled. Only pending and processing orders can be cancelled.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID int) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return repository.ErrNotFound
		}
		if !o.Cancellable() {
			return &StateConflictError{
				Resource: "order",
				State:    string(o.Status),
				Message:  fmt.Sprintf("Cannot cancel order with status %q.", o.Status),
			}
		}

		items, err := tx.Orders().ListItems(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			stock, err := tx.Products().UpdateStock(ctx, *item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				return err
			}
			if err := recordStock(ctx, tx, *item.ProductID, o.ID, models.StockIncoming, item.Quantity, stock); err != nil {
				return err
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, o.ID, models.OrderStatusCancelled, o.PaymentStatus); err != nil {
			return err
		}

		order, err = tx.Orders().GetOrderWithItems(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", "order_id", order.ID, "user_id", userID)
	s.invalidate(ctx, order.Items)
	return order, nil
}

// Get returns the user's order with its items. Orders of other users are
// reported as not found.
func (s *OrderService) Get(ctx context.Context, userID, orderID int) (*models.Order, error) {
	o, err := s.store.Orders().GetOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, userID int) ([]models.Order, error) {
	return s.store.Orders().GetByUserID(ctx, userID)
}

// UpdateStatus advances an order along pending, processing, shipped and
// delivered, one step at a time.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("%q is not a valid choice.", status))
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if next, ok := statusFlow[o.Status]; !ok || next != status {
			return &StateConflictError{
				Resource: "order",
				State:    string(o.Status),
				Message:  fmt.Sprintf("Cannot change order status from %q to %q.", o.Status, status),
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, o.ID, status, o.PaymentStatus); err != nil {
			return err
		}

		order, err = tx.Orders().GetOrderWithItems(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed", "order_id", order.ID, "status", order.Status)
	if s.notifier != nil {
		if err := s.notifier.OrderStatusChanged(ctx, order); err != nil {
			s.logger.Warn("status notification failed", "order_id", order.ID, "error", err)
		}
	}

	return order, nil
}

func recordStock(ctx context.Context, tx repository.Store, productID, orderID int, kind models.StockOperationType, change, stockAfter int) error {
	op := &models.StockOperation{
		ProductID:     productID,
		OrderID:       &orderID,
		OperationType: kind,
		ChangeQuant:   change,
		StockAfter:    stockAfter,
	}
	if err := tx.StockOperations().Create(ctx, op); err != nil {
		return fmt.Errorf("failed to record stock operation: %w", err)
	}
	return nil
}

func (s *OrderService) invalidate(ctx context.Context, items []models.OrderItem) {
	if s.invalidator == nil {
		return
	}
	ids := make([]int, 0, len(items))
	for _, item := range items {
		if item.ProductID != nil {
			ids = append(ids, *item.ProductID)
		}
	}
	if len(ids) > 0 {
		s.invalidator.InvalidateProducts(ctx, ids...)
	}
}
