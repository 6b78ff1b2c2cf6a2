package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/repository"
	"shopsphere/internal/repository/repotest"
)

type catalogFixture struct {
	store       *repotest.Store
	catalog     *CatalogService
	invalidator *recordingInvalidator
	electronics *models.Category
	phones      *models.Category
	retired     *models.Category
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	ctx := context.Background()
	store := repotest.New()
	invalidator := &recordingInvalidator{}
	f := &catalogFixture{
		store:       store,
		catalog:     NewCatalogService(store, nil, invalidator, discardLogger()),
		invalidator: invalidator,
	}

	f.electronics = &models.Category{Name: "Electronics", Slug: "electronics", Icon: "laptop", IsActive: true}
	require.NoError(t, f.catalog.CreateCategory(ctx, f.electronics))
	f.phones = &models.Category{Name: "Phones", Slug: "phones", ParentID: &f.electronics.ID, IsActive: true, DisplayOrder: 1}
	require.NoError(t, f.catalog.CreateCategory(ctx, f.phones))
	f.retired = &models.Category{Name: "Pagers", Slug: "pagers", ParentID: &f.electronics.ID, DisplayOrder: 2}
	require.NoError(t, f.catalog.CreateCategory(ctx, f.retired))
	return f
}

func (f *catalogFixture) product(t *testing.T, name, price string, category *models.Category) *models.Product {
	t.Helper()
	p := createProduct(t, f.store, name, price, 5)
	p.CategoryID = &category.ID
	require.NoError(t, f.catalog.UpdateProduct(context.Background(), p))
	return p
}

func TestCategoryTreeSkipsInactive(t *testing.T) {
	f := newCatalogFixture(t)

	tree, err := f.catalog.CategoryTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "electronics", tree[0].Slug)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Electronics > Phones", tree[0].Children[0].FullPath())

	_, err = f.catalog.Category(context.Background(), "pagers")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	subs, err := f.catalog.Subcategories(context.Background(), "electronics")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "phones", subs[0].Slug)
}

func TestProductsByCategoryIncludeChildren(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	laptop := f.product(t, "Laptop", "900.00", f.electronics)
	phone := f.product(t, "Phone", "600.00", f.phones)
	f.product(t, "Pager", "20.00", f.retired)

	list, err := f.catalog.Products(ctx, ProductQuery{Category: "electronics", Ordering: repository.OrderPriceDesc})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, laptop.ID, list[0].ID)
	assert.Equal(t, phone.ID, list[1].ID)

	list, err = f.catalog.Products(ctx, ProductQuery{Category: "phones"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, phone.ID, list[0].ID)

	list, err = f.catalog.Products(ctx, ProductQuery{Category: "no-such-category"})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = f.catalog.Products(ctx, ProductQuery{Ordering: "popularity"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "ordering")
}

func TestProductsFilters(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	cheap := f.product(t, "USB Cable", "9.50", f.electronics)
	f.product(t, "Monitor", "250.00", f.electronics)

	hidden := createProduct(t, f.store, "Prototype", "15.00", 1)
	hidden.IsAvailable = false
	require.NoError(t, f.catalog.UpdateProduct(ctx, hidden))

	list, err := f.catalog.Products(ctx, ProductQuery{MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(20))})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cheap.ID, list[0].ID)

	list, err = f.catalog.Products(ctx, ProductQuery{Search: "monit"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Monitor", list[0].Name)

	_, err = f.catalog.Product(ctx, hidden.Slug)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := f.catalog.AllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cheap.IsBestseller = true
	require.NoError(t, f.catalog.UpdateProduct(ctx, cheap))
	yes, no := true, false

	list, err = f.catalog.Products(ctx, ProductQuery{IsBestseller: &yes})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cheap.ID, list[0].ID)

	list, err = f.catalog.Products(ctx, ProductQuery{IsBestseller: &no})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Monitor", list[0].Name)
}

func TestRelatedProductsShareCategoryOrBrand(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	acme := &models.Brand{Name: "Acme", Slug: "acme", IsActive: true}
	require.NoError(t, f.catalog.CreateBrand(ctx, acme))

	phone := f.product(t, "Phone X", "500.00", f.phones)
	phone.BrandID = &acme.ID
	require.NoError(t, f.catalog.UpdateProduct(ctx, phone))

	sibling := f.product(t, "Phone Y", "400.00", f.phones)
	charger := f.product(t, "Charger", "20.00", f.electronics)
	charger.BrandID = &acme.ID
	require.NoError(t, f.catalog.UpdateProduct(ctx, charger))
	f.product(t, "Monitor", "250.00", f.electronics)

	related, err := f.catalog.RelatedProducts(ctx, phone.Slug)
	require.NoError(t, err)
	ids := make([]int, 0, len(related))
	for _, p := range related {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []int{sibling.ID, charger.ID}, ids)

	for i := range 8 {
		f.product(t, "Phone Case "+string(rune('A'+i)), "5.00", f.phones)
	}
	related, err = f.catalog.RelatedProducts(ctx, phone.Slug)
	require.NoError(t, err)
	assert.Len(t, related, 6)

	loner := createProduct(t, f.store, "Loner", "1.00", 1)
	related, err = f.catalog.RelatedProducts(ctx, loner.Slug)
	require.NoError(t, err)
	assert.NotNil(t, related)
	assert.Empty(t, related)

	_, err = f.catalog.RelatedProducts(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHomepageShelves(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	featured := f.product(t, "Drone", "300.00", f.electronics)
	featured.Featured = true
	require.NoError(t, f.catalog.UpdateProduct(ctx, featured))

	fresh := f.product(t, "Watch", "150.00", f.electronics)
	fresh.IsNew = true
	fresh.IsBestseller = true
	fresh.ComparePrice = decimal.NewNullDecimal(decimal.NewFromInt(200))
	require.NoError(t, f.catalog.UpdateProduct(ctx, fresh))

	for _, tc := range []struct {
		name string
		load func(context.Context) ([]models.Product, error)
		want int
	}{
		{"featured", f.catalog.FeaturedProducts, featured.ID},
		{"new arrivals", f.catalog.NewArrivals, fresh.ID},
		{"bestsellers", f.catalog.Bestsellers, fresh.ID},
		{"on sale", f.catalog.OnSale, fresh.ID},
	} {
		t.Run(tc.name, func(t *testing.T) {
			list, err := tc.load(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tc.want, list[0].ID)
		})
	}
}

func TestRootAndFeaturedCategories(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	books := &models.Category{Name: "Books", Slug: "books", IsActive: true, Featured: true}
	require.NoError(t, f.catalog.CreateCategory(ctx, books))
	tablets := &models.Category{Name: "Tablets", Slug: "tablets", ParentID: &f.electronics.ID, IsActive: true, Featured: true}
	require.NoError(t, f.catalog.CreateCategory(ctx, tablets))

	roots, err := f.catalog.RootCategories(ctx)
	require.NoError(t, err)
	slugs := []string{}
	for _, c := range roots {
		slugs = append(slugs, c.Slug)
	}
	assert.ElementsMatch(t, []string{"electronics", "books"}, slugs)

	featured, err := f.catalog.FeaturedCategories(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "books", featured[0].Slug)
}

func TestProductDetailIncludesImagesAndSpecifications(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	p := f.product(t, "Camera", "499.00", f.electronics)

	first := &models.ProductImage{ProductID: p.ID, Image: assets.Ref{Provider: assets.ProviderCloudinary, Key: "products/camera-front"}, IsPrimary: true}
	require.NoError(t, f.catalog.AddImage(ctx, first))
	second := &models.ProductImage{ProductID: p.ID, Image: assets.Ref{Provider: assets.ProviderCloudinary, Key: "products/camera-back"}, IsPrimary: true, DisplayOrder: 1}
	require.NoError(t, f.catalog.AddImage(ctx, second))
	require.NoError(t, f.catalog.AddSpecification(ctx, &models.ProductSpecification{ProductID: p.ID, Name: "Sensor", Value: "24MP"}))

	detail, err := f.catalog.Product(ctx, p.Slug)
	require.NoError(t, err)
	require.Len(t, detail.Images, 2)
	assert.Equal(t, second.ID, models.PrimaryImage(detail.Images).ID)
	require.Len(t, detail.Specifications, 1)
	assert.Equal(t, "24MP", detail.Specifications[0].Value)
	assert.Equal(t, []int{p.ID, p.ID}, f.invalidator.ids)

	err = f.catalog.AddImage(ctx, &models.ProductImage{ProductID: 9999, Image: assets.Ref{Provider: assets.ProviderLocal, Key: "x.png"}})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestAvailableShipping(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	standard := &models.ShippingOption{
		Name:                  "Standard",
		Price:                 decimal.RequireFromString("5.99"),
		EstimatedDaysMin:      3,
		EstimatedDaysMax:      5,
		IsActive:              true,
		FreeShippingThreshold: decimal.NewNullDecimal(decimal.NewFromInt(50)),
	}
	express := &models.ShippingOption{
		Name:             "Express",
		Price:            decimal.RequireFromString("14.99"),
		EstimatedDaysMin: 1,
		EstimatedDaysMax: 1,
		IsActive:         true,
		DisplayOrder:     1,
	}
	retired := &models.ShippingOption{Name: "Pigeon", Price: decimal.NewFromInt(1), EstimatedDaysMin: 9, EstimatedDaysMax: 30}
	for _, o := range []*models.ShippingOption{standard, express, retired} {
		require.NoError(t, f.catalog.CreateShippingOption(ctx, o))
	}

	options, err := f.catalog.AvailableShipping(ctx, decimal.NewFromInt(60))
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.True(t, options[0].Price.IsZero())
	assert.Equal(t, "14.99", options[1].Price.StringFixed(2))

	options, err = f.catalog.AvailableShipping(ctx, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Equal(t, "5.99", options[0].Price.StringFixed(2))
}

func TestBrands(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)

	require.NoError(t, f.catalog.CreateBrand(ctx, &models.Brand{Name: "Acme", Slug: "acme", IsActive: true}))
	require.NoError(t, f.catalog.CreateBrand(ctx, &models.Brand{Name: "Defunct", Slug: "defunct"}))

	err := f.catalog.CreateBrand(ctx, &models.Brand{Name: "Bad", Slug: "bad", Logo: &assets.Ref{Provider: assets.ProviderCloudinary, Key: "https://res.cloudinary.com/x/image/upload/logo"}})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	brands, err := f.catalog.Brands(ctx)
	require.NoError(t, err)
	require.Len(t, brands, 1)

	_, err = f.catalog.Brand(ctx, "defunct")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	featured, err := f.catalog.FeaturedBrands(ctx)
	require.NoError(t, err)
	assert.NotNil(t, featured)
	assert.Empty(t, featured)

	require.NoError(t, f.catalog.CreateBrand(ctx, &models.Brand{Name: "Zenith", Slug: "zenith", IsActive: true, IsFeatured: true}))
	require.NoError(t, f.catalog.CreateBrand(ctx, &models.Brand{Name: "Hidden Star", Slug: "hidden-star", IsFeatured: true}))
	featured, err = f.catalog.FeaturedBrands(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "zenith", featured[0].Slug)
}

func TestAdjustStockRecordsLedger(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	p := createProduct(t, f.store, "Desk Lamp", "30.00", 2)

	op, err := f.catalog.AdjustStock(ctx, p.ID, StockAdjustment{Change: 8, OperationType: models.StockIncoming, Note: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 10, op.StockAfter)
	assert.Nil(t, op.OrderID)
	assert.Equal(t, 10, stockOf(t, f.store, p.ID))

	op, err = f.catalog.AdjustStock(ctx, p.ID, StockAdjustment{Change: -3, OperationType: models.StockAdjustment, Note: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, 7, op.StockAfter)
	assert.Contains(t, f.invalidator.ids, p.ID)

	history, err := f.catalog.StockHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "damaged", history[0].Note)
	assert.Equal(t, models.StockIncoming, history[1].OperationType)
}

func TestAdjustStockRejections(t *testing.T) {
	ctx := context.Background()
	f := newCatalogFixture(t)
	p := createProduct(t, f.store, "Desk Fan", "45.00", 2)

	cases := map[string]StockAdjustment{
		"zero":              {Change: 0, OperationType: models.StockAdjustment},
		"negative incoming": {Change: -1, OperationType: models.StockIncoming},
		"outgoing":          {Change: -1, OperationType: models.StockOutgoing},
		"below zero":        {Change: -5, OperationType: models.StockAdjustment},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.catalog.AdjustStock(ctx, p.ID, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	_, err := f.catalog.AdjustStock(ctx, p.ID, StockAdjustment{Change: -5, OperationType: models.StockAdjustment})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Stock cannot go below 0. Current: 2", verr.Fields["change"])

	assert.Equal(t, 2, stockOf(t, f.store, p.ID))
	history, err := f.catalog.StockHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.catalog.StockHistory(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
