package models

import "time"

type StockOperationType string

const (
	// StockIncoming returns units to stock: cancellations and restocks.
	StockIncoming StockOperationType = "incoming"
	// StockOutgoing removes units sold by an order.
	StockOutgoing StockOperationType = "outgoing"
	// StockAdjustment is a manual correction in either direction.
	StockAdjustment StockOperationType = "adjustment"
)

func (t StockOperationType) Valid() bool {
	switch t {
	case StockIncoming, StockOutgoing, StockAdjustment:
		return true
	}
	return false
}

// StockOperation records one change to a product's stock level.
type StockOperation struct {
	ID            int                `json:"id"`
	ProductID     int                `json:"product_id"`
	OrderID       *int               `json:"order_id"`
	OperationType StockOperationType `json:"operation_type"`
	ChangeQuant   int                `json:"change_quant"`
	StockAfter    int                `json:"stock_after"`
	Note          string             `json:"note"`
	CreatedAt     time.Time          `json:"created_at"`
}
