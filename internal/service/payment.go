package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"shopsphere/internal/models"
	"shopsphere/internal/payment"
	"shopsphere/internal/repository"
)

type ProcessPaymentInput struct {
	OrderID        int    `json:"order_id" validate:"required,gt=0"`
	CardNumber     string `json:"card_number" validate:"required"`
	CardExpiry     string `json:"card_expiry" validate:"required"`
	CardCVV        string `json:"card_cvv" validate:"required"`
	CardHolderName string `json:"card_holder_name" validate:"required,max=100"`
}

type PaymentService struct {
	store    repository.Store
	gateway  payment.Gateway
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewPaymentService(store repository.Store, gateway payment.Gateway, notifier Notifier, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger.With("component", "payments"),
		now:      time.Now,
	}
}

// NewReference returns a payment reference of the form PAY-XXXXXXXXXXXX.
func NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(id[:12])
}

func validateCard(in ProcessPaymentInput) (payment.Card, error) {
	verr := &ValidationError{}

	number, err := payment.NormalizeCardNumber(in.CardNumber)
	if err != nil {
		verr.add("card_number", err.Error())
	}
	if err := payment.ValidateExpiry(in.CardExpiry); err != nil {
		verr.add("card_expiry", err.Error())
	}
	if err := payment.ValidateCVV(in.CardCVV); err != nil {
		verr.add("card_cvv", err.Error())
	}
	holder := strings.TrimSpace(in.CardHolderName)
	switch {
	case holder == "":
		verr.add("card_holder_name", "This field is required.")
	case utf8.RuneCountInString(holder) > 100:
		verr.add("card_holder_name", "Ensure this field has no more than 100 characters.")
	}

	if err := verr.orNil(); err != nil {
		return payment.Card{}, err
	}
	return payment.Card{Number: number, Expiry: in.CardExpiry, CVV: in.CardCVV, HolderName: holder}, nil
}

func checkPayable(o *models.Order, userID int) error {
	if o.UserID != userID {
		return invalid("order_id", "Order not found")
	}
	if o.PaymentStatus == models.OrderPaymentPaid {
		return &StateConflictError{Resource: "order", State: string(o.PaymentStatus), Message: "Order is already paid"}
	}
	if o.Status == models.OrderStatusCancelled {
		return &StateConflictError{Resource: "order", State: string(o.Status), Message: "Cannot pay for cancelled order"}
	}
	return nil
}

// Process authorizes the card against the simulated gateway and records the
// attempt. The gateway delay runs outside the transaction; the payable checks
// are repeated under the order row lock before anything is written, so only
// one of two concurrent payments can succeed. A decline is recorded and then
// returned as *DeclineError.
func (s *PaymentService) Process(ctx context.Context, userID int, in ProcessPaymentInput) (*models.Payment, *models.Order, error) {
	card, err := validateCard(in)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.store.Orders().GetByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, invalid("order_id", "Order not found")
		}
		return nil, nil, err
	}
	if err := checkPayable(order, userID); err != nil {
		return nil, nil, err
	}

	result, err := s.gateway.Authorize(ctx, card)
	if err != nil {
		return nil, nil, err
	}

	var p *models.Payment
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		o, err := tx.Orders().GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if err := checkPayable(o, userID); err != nil {
			return err
		}

		reference := NewReference()
		if existing, err := tx.Payments().GetByOrderID(ctx, o.ID); err == nil {
			reference = existing.Reference
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		p = &models.Payment{
			Reference:      reference,
			OrderID:        o.ID,
			UserID:         userID,
			Amount:         o.Total,
			Currency:       "USD",
			CardLastFour:   result.LastFour,
			CardBrand:      result.Brand,
			CardHolderName: card.HolderName,
		}

		if !result.Approved {
			reason := result.Reason
			if reason == "" {
				reason = "Payment failed"
			}
			p.Status = models.PaymentFailed
			p.ErrorMessage = &reason
			return tx.Payments().Upsert(ctx, p)
		}

		paidAt := s.now()
		p.Status = models.PaymentSuccessful
		p.PaidAt = &paidAt
		if err := tx.Payments().Upsert(ctx, p); err != nil {
			return err
		}

		status := o.Status
		if status == models.OrderStatusPending {
			status = models.OrderStatusProcessing
		}
		if err := tx.Orders().UpdateStatus(ctx, o.ID, status, models.OrderPaymentPaid); err != nil {
			return err
		}

		order, err = tx.Orders().GetOrderWithItems(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if p.Status == models.PaymentFailed {
		s.logger.Warn("payment declined", "order_id", p.OrderID, "reference", p.Reference, "reason", *p.ErrorMessage)
		return p, order, &DeclineError{Reason: *p.ErrorMessage, Payment: p}
	}

	s.logger.Info("payment successful", "order_id", p.OrderID, "reference", p.Reference, "amount", p.Amount.StringFixed(2))
	if s.notifier != nil {
		if err := s.notifier.PaymentConfirmed(ctx, order, p); err != nil {
			s.logger.Warn("payment confirmation failed", "order_id", order.ID, "error", err)
		}
	}

	return p, order, nil
}

// GetByOrder returns the payment of one of the user's orders.
func (s *PaymentService) GetByOrder(ctx context.Context, userID, orderID int) (*models.Payment, error) {
	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return s.store.Payments().GetByOrderID(ctx, orderID)
}

func (s *PaymentService) List(ctx context.Context, userID int) ([]models.Payment, error) {
	return s.store.Payments().GetByUserID(ctx, userID)
}
