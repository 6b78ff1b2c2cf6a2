package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductDerivedValues(t *testing.T) {
	p := Product{
		Price:             decimal.RequireFromString("75.00"),
		ComparePrice:      decimal.NewNullDecimal(decimal.RequireFromString("100.00")),
		Stock:             3,
		LowStockThreshold: 5,
		IsAvailable:       true,
	}

	assert.True(t, p.InStock())
	assert.True(t, p.IsLowStock())
	assert.Equal(t, int64(25), p.DiscountPercentage())

	p.IsAvailable = false
	assert.False(t, p.InStock())

	p.Stock = 0
	p.IsAvailable = true
	assert.False(t, p.InStock())
	assert.False(t, p.IsLowStock())
}

func TestDiscountPercentageWithoutDiscount(t *testing.T) {
	p := Product{Price: decimal.NewFromInt(10)}
	assert.Zero(t, p.DiscountPercentage())

	p.ComparePrice = decimal.NewNullDecimal(decimal.NewFromInt(8))
	assert.Zero(t, p.DiscountPercentage())

	p.ComparePrice = decimal.NewNullDecimal(decimal.NewFromInt(30))
	assert.Equal(t, int64(67), p.DiscountPercentage())
}

func TestDiscountPercentageRoundsHalfToEven(t *testing.T) {
	compare := decimal.NewNullDecimal(decimal.NewFromInt(100))

	p := Product{Price: decimal.RequireFromString("87.50"), ComparePrice: compare}
	assert.Equal(t, int64(12), p.DiscountPercentage())

	p.Price = decimal.RequireFromString("62.50")
	assert.Equal(t, int64(38), p.DiscountPercentage())
}

func TestPrimaryImage(t *testing.T) {
	assert.Nil(t, PrimaryImage(nil))

	images := []ProductImage{
		{ID: 1, DisplayOrder: 2},
		{ID: 2, DisplayOrder: 1},
		{ID: 3, DisplayOrder: 3},
	}
	assert.Equal(t, 2, PrimaryImage(images).ID)

	images[2].IsPrimary = true
	assert.Equal(t, 3, PrimaryImage(images).ID)
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{ProductPrice: decimal.RequireFromString("19.99"), Quantity: 3}
	assert.True(t, decimal.RequireFromString("59.97").Equal(item.Subtotal()))
}

func TestOrderCancellable(t *testing.T) {
	for status, want := range map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusProcessing: true,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
	} {
		assert.Equal(t, want, Order{Status: status}.Cancellable(), status)
	}
	assert.Equal(t, "Processing", OrderStatusProcessing.Display())
}

func TestShippingOption(t *testing.T) {
	opt := ShippingOption{
		Price:                 decimal.RequireFromString("9.99"),
		FreeShippingThreshold: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		EstimatedDaysMin:      3,
		EstimatedDaysMax:      5,
		Regions:               "US, CA",
	}

	assert.Equal(t, "3-5 days", opt.DeliveryEstimate())
	assert.True(t, opt.PriceFor(decimal.NewFromInt(100)).IsZero())
	assert.True(t, decimal.RequireFromString("9.99").Equal(opt.PriceFor(decimal.NewFromInt(99))))
	assert.True(t, opt.ShipsTo("ca"))
	assert.False(t, opt.ShipsTo("DE"))

	opt.EstimatedDaysMax = 3
	assert.Equal(t, "3 days", opt.DeliveryEstimate())
}

func TestCategoryFullPath(t *testing.T) {
	parent := 1
	assert.Equal(t, "Electronics", Category{Name: "Electronics"}.FullPath())
	assert.Equal(t, "Electronics > Phones", Category{Name: "Phones", ParentID: &parent, ParentName: "Electronics"}.FullPath())
}
