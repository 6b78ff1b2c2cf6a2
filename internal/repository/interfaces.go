package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"shopsphere/internal/models"
)

// Store groups the repositories. WithTx runs fn against a Store bound to a
// single transaction: it commits when fn returns nil and rolls back otherwise.
// Calling WithTx on a transactional Store reuses the open transaction.
type Store interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Brands() BrandRepository
	ShippingOptions() ShippingOptionRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Reviews() ReviewRepository
	Wishlist() WishlistRepository
	Notifications() NotificationRepository
	StockOperations() StockOperationRepository

	WithTx(ctx context.Context, fn func(Store) error) error
}

type ProductOrdering string

const (
	OrderNewest    ProductOrdering = "-created_at"
	OrderOldest    ProductOrdering = "created_at"
	OrderPriceAsc  ProductOrdering = "price"
	OrderPriceDesc ProductOrdering = "-price"
	OrderNameAsc   ProductOrdering = "name"
	OrderNameDesc  ProductOrdering = "-name"
	OrderStockAsc  ProductOrdering = "stock"
	OrderStockDesc ProductOrdering = "-stock"
)

func (o ProductOrdering) Valid() bool {
	switch o {
	case "", OrderNewest, OrderOldest, OrderPriceAsc, OrderPriceDesc, OrderNameAsc, OrderNameDesc, OrderStockAsc, OrderStockDesc:
		return true
	}
	return false
}

// ProductFilter narrows catalog listings. CategoryIDs is matched with ANY and
// should already include the active children of a requested category.
type ProductFilter struct {
	CategoryIDs  []int
	BrandSlug    string
	MinPrice     decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
	InStock      bool
	OnSale       bool
	Featured     *bool
	IsNew        *bool
	IsBestseller *bool
	// RelatedTo matches products sharing the category or brand of that
	// product id, excluding the product itself.
	RelatedTo     int
	Search        string
	Ordering      ProductOrdering
	IncludeHidden bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int) error

	// UpdateStock applies change atomically and fails with ErrNotEnough
	// instead of letting stock go negative.
	UpdateStock(ctx context.Context, id int, change int) (int, error)

	ListImages(ctx context.Context, productID int) ([]models.ProductImage, error)
	AddImage(ctx context.Context, image *models.ProductImage) error
	ListSpecifications(ctx context.Context, productID int) ([]models.ProductSpecification, error)
	AddSpecification(ctx context.Context, spec *models.ProductSpecification) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Children(ctx context.Context, parentID int) ([]models.Category, error)
}

type BrandRepository interface {
	Create(ctx context.Context, brand *models.Brand) error
	GetBySlug(ctx context.Context, slug string) (*models.Brand, error)
	List(ctx context.Context, activeOnly bool) ([]models.Brand, error)
}

type ShippingOptionRepository interface {
	Create(ctx context.Context, option *models.ShippingOption) error
	List(ctx context.Context, activeOnly bool) ([]models.ShippingOption, error)
}

type OrderRepository interface {
	// Create inserts the order row only; items are added with AddItem.
	Create(ctx context.Context, order *models.Order) error
	AddItem(ctx context.Context, item *models.OrderItem) error
	UpdateTotals(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id int, status models.OrderStatus, paymentStatus models.OrderPaymentStatus) error

	GetByID(ctx context.Context, id int) (*models.Order, error)
	// GetForUpdate locks the order row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int) (*models.Order, error)
	GetOrderWithItems(ctx context.Context, id int) (*models.Order, error)
	GetByUserID(ctx context.Context, userID int) ([]models.Order, error)
	ListItems(ctx context.Context, orderID int) ([]models.OrderItem, error)
}

type PaymentRepository interface {
	// Upsert creates the order's payment or overwrites the previous attempt,
	// keeping its reference.
	Upsert(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID int) (*models.Payment, error)
	GetByUserID(ctx context.Context, userID int) ([]models.Payment, error)
}

type ReviewFilter struct {
	ProductID    int
	ProductSlug  string
	UserID       int
	ApprovedOnly bool
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id int) error
	GetByID(ctx context.Context, id int) (*models.Review, error)
	GetByUserAndProduct(ctx context.Context, userID, productID int) (*models.Review, error)
	List(ctx context.Context, filter ReviewFilter) ([]models.Review, error)
	Stats(ctx context.Context, productID int) (*models.ReviewStats, error)
}

type WishlistRepository interface {
	Add(ctx context.Context, item *models.WishlistItem) error
	Get(ctx context.Context, userID, productID int) (*models.WishlistItem, error)
	ListByUser(ctx context.Context, userID int) ([]models.WishlistItem, error)
	Remove(ctx context.Context, userID, productID int) error
	DeleteByID(ctx context.Context, userID, id int) error
	Clear(ctx context.Context, userID int) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, userID, id int) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID int) (int64, error)
	Delete(ctx context.Context, userID, id int) error
	Clear(ctx context.Context, userID int) (int64, error)
}

// StockOperationRepository is the append-only ledger of stock changes.
type StockOperationRepository interface {
	Create(ctx context.Context, op *models.StockOperation) error
	ListByProduct(ctx context.Context, productID int) ([]models.StockOperation, error)
	ListByOrder(ctx context.Context, orderID int) ([]models.StockOperation, error)
}
