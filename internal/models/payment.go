package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) Display() string { return display(string(s)) }

// Payment holds masked card metadata only; the full number and CVV are never stored.
type Payment struct {
	ID             int             `json:"id"`
	Reference      string          `json:"reference"`
	OrderID        int             `json:"order"`
	UserID         int             `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         PaymentStatus   `json:"status"`
	CardLastFour   string          `json:"card_last_four"`
	CardBrand      string          `json:"card_brand"`
	CardHolderName string          `json:"card_holder_name"`
	ErrorMessage   *string         `json:"error_message"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	PaidAt         *time.Time      `json:"paid_at"`
}
