// Package notify turns order and payment events into stored notifications
// and pushes them to connected websocket clients.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

// Publisher delivers a stored notification to live connections.
type Publisher interface {
	Publish(n *models.Notification) int
}

type Dispatcher struct {
	notifications repository.NotificationRepository
	publisher     Publisher
	logger        *slog.Logger
}

// NewDispatcher writes notifications through repo. publisher may be nil,
// in which case nothing is pushed.
func NewDispatcher(repo repository.NotificationRepository, publisher Publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: repo,
		publisher:     publisher,
		logger:        logger.With("component", "notify"),
	}
}

func orderLink(orderID int) *string {
	link := fmt.Sprintf("/orders/%d", orderID)
	return &link
}

func (d *Dispatcher) OrderConfirmed(ctx context.Context, o *models.Order) error {
	return d.send(ctx, &models.Notification{
		UserID:  o.UserID,
		Type:    models.NotificationOrder,
		Title:   "Order Confirmed",
		Message: fmt.Sprintf("Your order #%d has been placed. Total: $%s", o.ID, o.Total.StringFixed(2)),
		Link:    orderLink(o.ID),
	})
}

func (d *Dispatcher) PaymentConfirmed(ctx context.Context, o *models.Order, p *models.Payment) error {
	return d.send(ctx, &models.Notification{
		UserID:  o.UserID,
		Type:    models.NotificationPayment,
		Title:   "Payment Successful",
		Message: fmt.Sprintf("Payment %s of $%s for order #%d was successful.", p.Reference, p.Amount.StringFixed(2), o.ID),
		Link:    orderLink(o.ID),
	})
}

func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o *models.Order) error {
	n := &models.Notification{
		UserID: o.UserID,
		Type:   models.NotificationOrder,
		Link:   orderLink(o.ID),
	}
	switch o.Status {
	case models.OrderStatusShipped:
		n.Type = models.NotificationShipping
		n.Title = "Order Shipped"
		n.Message = fmt.Sprintf("Your order #%d is on its way.", o.ID)
	case models.OrderStatusDelivered:
		n.Type = models.NotificationShipping
		n.Title = "Order Delivered"
		n.Message = fmt.Sprintf("Your order #%d has been delivered.", o.ID)
	default:
		n.Title = "Order " + o.Status.Display()
		n.Message = fmt.Sprintf("Your order #%d is now %s.", o.ID, o.Status)
	}
	return d.send(ctx, n)
}

func (d *Dispatcher) send(ctx context.Context, n *models.Notification) error {
	if err := d.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if d.publisher != nil {
		delivered := d.publisher.Publish(n)
		d.logger.Debug("notification dispatched", "user_id", n.UserID, "type", n.Type, "connections", delivered)
	}
	return nil
}
