package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

// ProductQuery is the public product listing filter. Category and Brand are slugs.
type ProductQuery struct {
	Category     string
	Brand        string
	MinPrice     decimal.NullDecimal
	MaxPrice     decimal.NullDecimal
	InStock      bool
	OnSale       bool
	Featured     *bool
	IsNew        *bool
	IsBestseller *bool
	Search       string
	Ordering     repository.ProductOrdering
	Limit        int
	Offset       int
}

// Homepage shelf sizes.
const (
	featuredProductsLimit   = 8
	newArrivalsLimit        = 8
	bestsellersLimit        = 8
	onSaleLimit             = 12
	relatedProductsLimit    = 6
	featuredCategoriesLimit = 8
	featuredBrandsLimit     = 10
)

type CatalogService struct {
	store       repository.Store
	products    repository.ProductRepository
	invalidator ProductInvalidator
	logger      *slog.Logger
}

// NewCatalogService serves product reads and admin writes through products,
// which is usually the cached repository. invalidator may be nil.
func NewCatalogService(store repository.Store, products repository.ProductRepository, invalidator ProductInvalidator, logger *slog.Logger) *CatalogService {
	if products == nil {
		products = store.Products()
	}
	return &CatalogService{
		store:       store,
		products:    products,
		invalidator: invalidator,
		logger:      logger.With("component", "catalog"),
	}
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories().List(ctx, true)
}

// RootCategories returns active top-level categories without children.
func (s *CatalogService) RootCategories(ctx context.Context) ([]models.Category, error) {
	return s.filterCategories(ctx, 0, func(c models.Category) bool { return c.ParentID == nil })
}

// FeaturedCategories returns up to eight featured root categories.
func (s *CatalogService) FeaturedCategories(ctx context.Context) ([]models.Category, error) {
	return s.filterCategories(ctx, featuredCategoriesLimit, func(c models.Category) bool {
		return c.ParentID == nil && c.Featured
	})
}

func (s *CatalogService) filterCategories(ctx context.Context, limit int, keep func(models.Category) bool) ([]models.Category, error) {
	all, err := s.store.Categories().List(ctx, true)
	if err != nil {
		return nil, err
	}

	out := []models.Category{}
	for _, c := range all {
		if !keep(c) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// CategoryTree returns active root categories with their active children.
func (s *CatalogService) CategoryTree(ctx context.Context) ([]models.Category, error) {
	all, err := s.store.Categories().List(ctx, true)
	if err != nil {
		return nil, err
	}

	children := make(map[int][]models.Category)
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	roots := []models.Category{}
	for _, c := range all {
		if c.ParentID == nil {
			c.Children = children[c.ID]
			roots = append(roots, c)
		}
	}
	return roots, nil
}

func (s *CatalogService) Category(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.store.Categories().GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, repository.ErrNotFound
	}
	c.Children, err = s.store.Categories().Children(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) Subcategories(ctx context.Context, slug string) ([]models.Category, error) {
	c, err := s.Category(ctx, slug)
	if err != nil {
		return nil, err
	}
	return c.Children, nil
}

func (s *CatalogService) Brands(ctx context.Context) ([]models.Brand, error) {
	return s.store.Brands().List(ctx, true)
}

func (s *CatalogService) FeaturedBrands(ctx context.Context) ([]models.Brand, error) {
	all, err := s.store.Brands().List(ctx, true)
	if err != nil {
		return nil, err
	}

	out := []models.Brand{}
	for _, b := range all {
		if b.IsFeatured {
			out = append(out, b)
		}
		if len(out) == featuredBrandsLimit {
			break
		}
	}
	return out, nil
}

func (s *CatalogService) Brand(ctx context.Context, slug string) (*models.Brand, error) {
	b, err := s.store.Brands().GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

// Products lists available products. A category filter also matches the
// category's active children; an unknown category yields an empty list.
func (s *CatalogService) Products(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	if !q.Ordering.Valid() {
		return nil, invalid("ordering", "Unsupported ordering "+string(q.Ordering))
	}

	filter := repository.ProductFilter{
		BrandSlug:    q.Brand,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		InStock:      q.InStock,
		OnSale:       q.OnSale,
		Featured:     q.Featured,
		IsNew:        q.IsNew,
		Search:       q.Search,
		IsBestseller: q.IsBestseller,
		Ordering:     q.Ordering,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}

	if q.Category != "" {
		c, err := s.Category(ctx, q.Category)
		if errors.Is(err, repository.ErrNotFound) {
			return []models.Product{}, nil
		}
		if err != nil {
			return nil, err
		}
		filter.CategoryIDs = []int{c.ID}
		for _, child := range c.Children {
			filter.CategoryIDs = append(filter.CategoryIDs, child.ID)
		}
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]models.Product, error) {
	yes := true
	return s.Products(ctx, ProductQuery{Featured: &yes, Limit: featuredProductsLimit})
}

func (s *CatalogService) NewArrivals(ctx context.Context) ([]models.Product, error) {
	yes := true
	return s.Products(ctx, ProductQuery{IsNew: &yes, Ordering: repository.OrderNewest, Limit: newArrivalsLimit})
}

func (s *CatalogService) Bestsellers(ctx context.Context) ([]models.Product, error) {
	yes := true
	return s.Products(ctx, ProductQuery{IsBestseller: &yes, Limit: bestsellersLimit})
}

func (s *CatalogService) OnSale(ctx context.Context) ([]models.Product, error) {
	return s.Products(ctx, ProductQuery{OnSale: true, Ordering: repository.OrderNewest, Limit: onSaleLimit})
}

// RelatedProducts lists up to six available products sharing the category
// or brand of the product with the given slug.
func (s *CatalogService) RelatedProducts(ctx context.Context, slug string) ([]models.Product, error) {
	p, err := s.Product(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.CategoryID == nil && p.BrandID == nil {
		return []models.Product{}, nil
	}

	related, err := s.products.List(ctx, repository.ProductFilter{RelatedTo: p.ID, Limit: relatedProductsLimit})
	if err != nil {
		return nil, err
	}
	if related == nil {
		related = []models.Product{}
	}
	return related, nil
}

// Product returns an available product by slug with images and specifications.
func (s *CatalogService) Product(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsAvailable {
		return nil, repository.ErrNotFound
	}
	return p, s.loadDetails(ctx, p)
}

func (s *CatalogService) loadDetails(ctx context.Context, p *models.Product) error {
	var err error
	if p.Images, err = s.products.ListImages(ctx, p.ID); err != nil {
		return err
	}
	p.Specifications, err = s.products.ListSpecifications(ctx, p.ID)
	return err
}

func (s *CatalogService) ProductByID(ctx context.Context, id int) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, s.loadDetails(ctx, p)
}

func (s *CatalogService) AllProducts(ctx context.Context) ([]models.Product, error) {
	return s.products.GetAll(ctx)
}

func (s *CatalogService) ShippingOptions(ctx context.Context) ([]models.ShippingOption, error) {
	return s.store.ShippingOptions().List(ctx, true)
}

// AvailableShipping prices the active options for an order total; options
// whose free shipping threshold is met cost nothing.
func (s *CatalogService) AvailableShipping(ctx context.Context, total decimal.Decimal) ([]models.ShippingOption, error) {
	options, err := s.store.ShippingOptions().List(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range options {
		options[i].Price = options[i].PriceFor(total)
	}
	return options, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.products.Create(ctx, p)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.products.Update(ctx, p)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int) error {
	return s.products.Delete(ctx, id)
}

// AddImage stores an image; a primary image replaces the previous primary in
// the same transaction.
func (s *CatalogService) AddImage(ctx context.Context, img *models.ProductImage) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Products().AddImage(ctx, img)
	})
	if err != nil {
		return err
	}

	s.logger.Info("product image added", "product_id", img.ProductID, "image", img.Image.String(), "primary", img.IsPrimary)
	if s.invalidator != nil {
		s.invalidator.InvalidateProducts(ctx, img.ProductID)
	}
	return nil
}

func (s *CatalogService) AddSpecification(ctx context.Context, spec *models.ProductSpecification) error {
	return s.products.AddSpecification(ctx, spec)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.store.Categories().Create(ctx, c)
}

func (s *CatalogService) CreateBrand(ctx context.Context, b *models.Brand) error {
	return s.store.Brands().Create(ctx, b)
}

func (s *CatalogService) CreateShippingOption(ctx context.Context, o *models.ShippingOption) error {
	return s.store.ShippingOptions().Create(ctx, o)
}

type StockAdjustment struct {
	Change        int                       `json:"change" validate:"required"`
	OperationType models.StockOperationType `json:"operation_type" validate:"required,oneof=incoming adjustment"`
	Note          string                    `json:"note" validate:"max=255"`
}

// AdjustStock applies a staff restock or correction and records it in the
// stock ledger. Incoming operations must add units.
func (s *CatalogService) AdjustStock(ctx context.Context, productID int, in StockAdjustment) (*models.StockOperation, error) {
	switch {
	case in.Change == 0:
		return nil, invalid("change", "Change cannot be 0.")
	case in.OperationType == models.StockIncoming && in.Change < 0:
		return nil, invalid("change", "Incoming stock must be positive.")
	case in.OperationType != models.StockIncoming && in.OperationType != models.StockAdjustment:
		return nil, invalid("operation_type", fmt.Sprintf("%q is not a valid choice.", in.OperationType))
	}

	op := &models.StockOperation{
		ProductID:     productID,
		OperationType: in.OperationType,
		ChangeQuant:   in.Change,
		Note:          in.Note,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		stock, err := tx.Products().UpdateStock(ctx, productID, in.Change)
		if err != nil {
			if errors.Is(err, repository.ErrNotEnough) {
				return invalid("change", fmt.Sprintf("Stock cannot go below 0. Current: %d", stock))
			}
			return err
		}
		op.StockAfter = stock
		return tx.StockOperations().Create(ctx, op)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted", "product_id", productID, "change", in.Change, "stock", op.StockAfter, "type", in.OperationType)
	if s.invalidator != nil {
		s.invalidator.InvalidateProducts(ctx, productID)
	}
	return op, nil
}

// StockHistory lists a product's stock operations, newest first.
func (s *CatalogService) StockHistory(ctx context.Context, productID int) ([]models.StockOperation, error) {
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.StockOperations().ListByProduct(ctx, productID)
}
