package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopsphere/internal/assets"
)

type Category struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	ParentID     *int      `json:"parent_id"`
	ParentName   string    `json:"parent_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Children []Category `json:"children,omitempty"`
}

// FullPath renders "Parent > Child" for nested categories.
func (c Category) FullPath() string {
	if c.ParentID != nil && c.ParentName != "" {
		return c.ParentName + " > " + c.Name
	}
	return c.Name
}

var CategoryIcons = map[string]string{
	"laptop":         "Electronics",
	"shirt":          "Fashion",
	"home":           "Home & Living",
	"sparkles":       "Beauty & Skincare",
	"book-open":      "Books & Education",
	"fire":           "Sports & Fitness",
	"puzzle":         "Kids & Toys",
	"cloud-download": "Digital Products",
	"tag":            "General",
}

type Brand struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Website     string      `json:"website"`
	Logo        *assets.Ref `json:"logo"`
	IsActive    bool        `json:"is_active"`
	IsFeatured  bool        `json:"is_featured"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type ShippingOption struct {
	ID                    int                 `json:"id"`
	Name                  string              `json:"name"`
	Description           string              `json:"description"`
	Price                 decimal.Decimal     `json:"price"`
	EstimatedDaysMin      int                 `json:"estimated_days_min"`
	EstimatedDaysMax      int                 `json:"estimated_days_max"`
	IsActive              bool                `json:"is_active"`
	IsDefault             bool                `json:"is_default"`
	FreeShippingThreshold decimal.NullDecimal `json:"free_shipping_threshold"`
	Regions               string              `json:"regions"`
	DisplayOrder          int                 `json:"display_order"`
	CreatedAt             time.Time           `json:"created_at"`
}

func (s ShippingOption) DeliveryEstimate() string {
	if s.EstimatedDaysMin == s.EstimatedDaysMax {
		return fmt.Sprintf("%d days", s.EstimatedDaysMin)
	}
	return fmt.Sprintf("%d-%d days", s.EstimatedDaysMin, s.EstimatedDaysMax)
}

// PriceFor returns the option's price for an order total, zero once the free
// shipping threshold is reached.
func (s ShippingOption) PriceFor(total decimal.Decimal) decimal.Decimal {
	if s.FreeShippingThreshold.Valid && total.GreaterThanOrEqual(s.FreeShippingThreshold.Decimal) {
		return decimal.Zero
	}
	return s.Price
}

// ShipsTo reports whether a country code is covered by Regions.
func (s ShippingOption) ShipsTo(country string) bool {
	if s.Regions == "" || strings.EqualFold(s.Regions, "worldwide") {
		return true
	}
	for _, region := range strings.Split(s.Regions, ",") {
		if strings.EqualFold(strings.TrimSpace(region), country) {
			return true
		}
	}
	return false
}
