package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
)

// Money is rendered with two decimals as a JSON string.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

type imageJSON struct {
	ID           int        `json:"id"`
	Image        assets.Ref `json:"image"`
	ImageURL     string     `json:"image_url"`
	AltText      string     `json:"alt_text"`
	IsPrimary    bool       `json:"is_primary"`
	DisplayOrder int        `json:"display_order"`
}

type productJSON struct {
	ID                 int                           `json:"id"`
	Name               string                        `json:"name"`
	Slug               string                        `json:"slug"`
	SKU                string                        `json:"sku"`
	Description        string                        `json:"description"`
	ShortDescription   string                        `json:"short_description"`
	ProductType        models.ProductType            `json:"product_type"`
	Price              string                        `json:"price"`
	ComparePrice       *string                       `json:"compare_price"`
	DiscountPercentage int64                         `json:"discount_percentage"`
	Stock              int                           `json:"stock"`
	InStock            bool                          `json:"in_stock"`
	IsLowStock         bool                          `json:"is_low_stock"`
	IsAvailable        bool                          `json:"is_available"`
	CategoryID         *int                          `json:"category_id"`
	BrandID            *int                          `json:"brand_id"`
	Weight             *string                       `json:"weight"`
	Dimensions         string                        `json:"dimensions"`
	Featured           bool                          `json:"featured"`
	IsNew              bool                          `json:"is_new"`
	IsBestseller       bool                          `json:"is_bestseller"`
	PrimaryImage       *string                       `json:"primary_image,omitempty"`
	Images             []imageJSON                   `json:"images,omitempty"`
	Specifications     []models.ProductSpecification `json:"specifications,omitempty"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}

type presenter struct {
	resolver assets.Resolver
}

func (p presenter) product(m *models.Product) productJSON {
	out := productJSON{
		ID:                 m.ID,
		Name:               m.Name,
		Slug:               m.Slug,
		SKU:                m.SKU,
		Description:        m.Description,
		ShortDescription:   m.ShortDescription,
		ProductType:        m.ProductType,
		Price:              money(m.Price),
		ComparePrice:       nullMoney(m.ComparePrice),
		DiscountPercentage: m.DiscountPercentage(),
		Stock:              m.Stock,
		InStock:            m.InStock(),
		IsLowStock:         m.IsLowStock(),
		IsAvailable:        m.IsAvailable,
		CategoryID:         m.CategoryID,
		BrandID:            m.BrandID,
		Dimensions:         m.Dimensions,
		Featured:           m.Featured,
		IsNew:              m.IsNew,
		IsBestseller:       m.IsBestseller,
		Specifications:     m.Specifications,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.Weight.Valid {
		w := m.Weight.Decimal.String()
		out.Weight = &w
	}
	for _, img := range m.Images {
		out.Images = append(out.Images, p.image(img))
	}
	if primary := models.PrimaryImage(m.Images); primary != nil {
		url := p.resolver.URL(primary.Image)
		out.PrimaryImage = &url
	}
	return out
}

func (p presenter) image(img models.ProductImage) imageJSON {
	return imageJSON{
		ID:           img.ID,
		Image:        img.Image,
		ImageURL:     p.resolver.URL(img.Image),
		AltText:      img.AltText,
		IsPrimary:    img.IsPrimary,
		DisplayOrder: img.DisplayOrder,
	}
}

func (p presenter) products(ms []models.Product) []productJSON {
	out := make([]productJSON, 0, len(ms))
	for i := range ms {
		out = append(out, p.product(&ms[i]))
	}
	return out
}

type brandJSON struct {
	models.Brand
	LogoURL *string `json:"logo_url"`
}

func (p presenter) brand(b models.Brand) brandJSON {
	out := brandJSON{Brand: b}
	if b.Logo != nil && !b.Logo.IsZero() {
		url := p.resolver.URL(*b.Logo)
		out.LogoURL = &url
	}
	return out
}

func (p presenter) brands(bs []models.Brand) []brandJSON {
	out := make([]brandJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, p.brand(b))
	}
	return out
}

type shippingOptionJSON struct {
	ID                    int     `json:"id"`
	Name                  string  `json:"name"`
	Description           string  `json:"description"`
	Price                 string  `json:"price"`
	EstimatedDaysMin      int     `json:"estimated_days_min"`
	EstimatedDaysMax      int     `json:"estimated_days_max"`
	DeliveryEstimate      string  `json:"delivery_estimate"`
	IsDefault             bool    `json:"is_default"`
	FreeShippingThreshold *string `json:"free_shipping_threshold"`
	Regions               string  `json:"regions"`
}

func presentShipping(os []models.ShippingOption) []shippingOptionJSON {
	out := make([]shippingOptionJSON, 0, len(os))
	for _, o := range os {
		out = append(out, shippingOptionJSON{
			ID:                    o.ID,
			Name:                  o.Name,
			Description:           o.Description,
			Price:                 money(o.Price),
			EstimatedDaysMin:      o.EstimatedDaysMin,
			EstimatedDaysMax:      o.EstimatedDaysMax,
			DeliveryEstimate:      o.DeliveryEstimate(),
			IsDefault:             o.IsDefault,
			FreeShippingThreshold: nullMoney(o.FreeShippingThreshold),
			Regions:               o.Regions,
		})
	}
	return out
}

type orderItemJSON struct {
	ID           int     `json:"id"`
	Product      *int    `json:"product"`
	ProductName  string  `json:"product_name"`
	ProductPrice string  `json:"product_price"`
	ProductImage *string `json:"product_image"`
	ProductSlug  *string `json:"product_slug"`
	Quantity     int     `json:"quantity"`
	Subtotal     string  `json:"subtotal"`
}

type orderJSON struct {
	ID                   int                       `json:"id"`
	Status               models.OrderStatus        `json:"status"`
	StatusDisplay        string                    `json:"status_display"`
	PaymentStatus        models.OrderPaymentStatus `json:"payment_status"`
	PaymentStatusDisplay string                    `json:"payment_status_display"`
	ShippingAddress      string                    `json:"shipping_address"`
	ShippingCity         string                    `json:"shipping_city"`
	ShippingCountry      string                    `json:"shipping_country"`
	ShippingPhone        string                    `json:"shipping_phone"`
	Subtotal             string                    `json:"subtotal"`
	ShippingCost         string                    `json:"shipping_cost"`
	Tax                  string                    `json:"tax"`
	Total                string                    `json:"total"`
	Notes                string                    `json:"notes"`
	Items                []orderItemJSON           `json:"items"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

func presentOrder(o *models.Order) orderJSON {
	out := orderJSON{
		ID:                   o.ID,
		Status:               o.Status,
		StatusDisplay:        o.Status.Display(),
		PaymentStatus:        o.PaymentStatus,
		PaymentStatusDisplay: o.PaymentStatus.Display(),
		ShippingAddress:      o.ShippingAddress,
		ShippingCity:         o.ShippingCity,
		ShippingCountry:      o.ShippingCountry,
		ShippingPhone:        o.ShippingPhone,
		Subtotal:             money(o.Subtotal),
		ShippingCost:         money(o.ShippingCost),
		Tax:                  money(o.Tax),
		Total:                money(o.Total),
		Notes:                o.Notes,
		Items:                make([]orderItemJSON, 0, len(o.Items)),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, orderItemJSON{
			ID:           item.ID,
			Product:      item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: money(item.ProductPrice),
			ProductImage: item.ProductImage,
			ProductSlug:  item.ProductSlug,
			Quantity:     item.Quantity,
			Subtotal:     money(item.Subtotal()),
		})
	}
	return out
}

func presentOrders(os []models.Order) []orderJSON {
	out := make([]orderJSON, 0, len(os))
	for i := range os {
		out = append(out, presentOrder(&os[i]))
	}
	return out
}

type paymentJSON struct {
	ID             int                  `json:"id"`
	Reference      string               `json:"reference"`
	Order          int                  `json:"order"`
	Amount         string               `json:"amount"`
	Currency       string               `json:"currency"`
	Status         models.PaymentStatus `json:"status"`
	StatusDisplay  string               `json:"status_display"`
	CardLastFour   string               `json:"card_last_four"`
	CardBrand      string               `json:"card_brand"`
	CardHolderName string               `json:"card_holder_name"`
	ErrorMessage   *string              `json:"error_message"`
	CreatedAt      time.Time            `json:"created_at"`
	PaidAt         *time.Time           `json:"paid_at"`
}

func presentPayment(p *models.Payment) paymentJSON {
	return paymentJSON{
		ID:             p.ID,
		Reference:      p.Reference,
		Order:          p.OrderID,
		Amount:         money(p.Amount),
		Currency:       p.Currency,
		Status:         p.Status,
		StatusDisplay:  p.Status.Display(),
		CardLastFour:   p.CardLastFour,
		CardBrand:      p.CardBrand,
		CardHolderName: p.CardHolderName,
		ErrorMessage:   p.ErrorMessage,
		CreatedAt:      p.CreatedAt,
		PaidAt:         p.PaidAt,
	}
}

type wishlistItemJSON struct {
	ID        int          `json:"id"`
	ProductID int          `json:"product_id"`
	Product   *productJSON `json:"product,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (p presenter) wishlistItem(w *models.WishlistItem) wishlistItemJSON {
	out := wishlistItemJSON{ID: w.ID, ProductID: w.ProductID, CreatedAt: w.CreatedAt}
	if w.Product != nil {
		prod := p.product(w.Product)
		out.Product = &prod
	}
	return out
}
