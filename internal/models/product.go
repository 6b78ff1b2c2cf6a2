package models

import (
	"time"

	"github.com/shopspring/decimal"

	"shopsphere/internal/assets"
)

type ProductType string

const (
	ProductPhysical ProductType = "physical"
	ProductDigital  ProductType = "digital"
)

func (t ProductType) Valid() bool {
	return t == ProductPhysical || t == ProductDigital
}

type Product struct {
	ID                int                 `json:"id"`
	Name              string              `json:"name"`
	Slug              string              `json:"slug"`
	SKU               string              `json:"sku"`
	Description       string              `json:"description"`
	ShortDescription  string              `json:"short_description"`
	ProductType       ProductType         `json:"product_type"`
	Price             decimal.Decimal     `json:"price"`
	ComparePrice      decimal.NullDecimal `json:"compare_price"`
	Stock             int                 `json:"stock"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
	IsAvailable       bool                `json:"is_available"`
	CategoryID        *int                `json:"category_id"`
	BrandID           *int                `json:"brand_id"`
	Weight            decimal.NullDecimal `json:"weight"`
	Dimensions        string              `json:"dimensions"`
	Featured          bool                `json:"featured"`
	IsNew             bool                `json:"is_new"`
	IsBestseller      bool                `json:"is_bestseller"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	Images         []ProductImage         `json:"images,omitempty"`
	Specifications []ProductSpecification `json:"specifications,omitempty"`
}

func (p Product) InStock() bool {
	return p.Stock > 0 && p.IsAvailable
}

func (p Product) IsLowStock() bool {
	return p.Stock > 0 && p.Stock <= p.LowStockThreshold
}

// DiscountPercentage is the whole-number discount of Price against ComparePrice,
// rounded half to even.
func (p Product) DiscountPercentage() int64 {
	if !p.ComparePrice.Valid || !p.ComparePrice.Decimal.GreaterThan(p.Price) {
		return 0
	}
	compare := p.ComparePrice.Decimal
	return compare.Sub(p.Price).Div(compare).Mul(decimal.NewFromInt(100)).RoundBank(0).IntPart()
}

type ProductImage struct {
	ID           int        `json:"id"`
	ProductID    int        `json:"product_id"`
	Image        assets.Ref `json:"image"`
	AltText      string     `json:"alt_text"`
	IsPrimary    bool       `json:"is_primary"`
	DisplayOrder int        `json:"display_order"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PrimaryImage returns the image flagged primary, else the one with the lowest
// display order, else nil.
func PrimaryImage(images []ProductImage) *ProductImage {
	var first *ProductImage
	for i := range images {
		if images[i].IsPrimary {
			return &images[i]
		}
		if first == nil || images[i].DisplayOrder < first.DisplayOrder {
			first = &images[i]
		}
	}
	return first
}

type ProductSpecification struct {
	ID           int    `json:"id"`
	ProductID    int    `json:"product_id"`
	Name         string `json:"name"`
	Value        string `json:"value"`
	DisplayOrder int    `json:"display_order"`
}
