// Package seed loads the demo catalog used by local environments.
// Every record is matched by slug (shipping options by name), so running it
// twice leaves the catalog unchanged.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

type Result struct {
	Categories      int
	Brands          int
	Products        int
	ShippingOptions int
}

func (r Result) Total() int {
	return r.Categories + r.Brands + r.Products + r.ShippingOptions
}

type categorySeed struct {
	name, slug, icon, parent string
	featured                 bool
}

type productSeed struct {
	name, slug, sku, category, brand string
	short                            string
	price, compare                   string
	stock                            int
	featured, isNew, bestseller      bool
	image                            string
	specs                            [][2]string
}

var categories = []categorySeed{
	{name: "Electronics", slug: "electronics", icon: "cpu", featured: true},
	{name: "Phones", slug: "phones", icon: "smartphone", parent: "electronics"},
	{name: "Audio", slug: "audio", icon: "headphones", parent: "electronics"},
	{name: "Home & Kitchen", slug: "home-kitchen", icon: "home", featured: true},
	{name: "Books", slug: "books", icon: "book"},
}

var brands = []models.Brand{
	{Name: "Acme", Slug: "acme", Description: "Everyday electronics", Website: "https://acme.example.com", IsActive: true, IsFeatured: true},
	{Name: "Sonora", Slug: "sonora", Description: "Headphones and speakers", Website: "https://sonora.example.com", IsActive: true},
	{Name: "Hearth", Slug: "hearth", Description: "Kitchen appliances", IsActive: true},
}

var products = []productSeed{
	{
		name: "Acme Phone X", slug: "acme-phone-x", sku: "ACM-PX-001", category: "phones", brand: "acme",
		short: "6.1 inch display, 128 GB", price: "699.00", compare: "799.00", stock: 25,
		featured: true, isNew: true, image: "products/acme-phone-x",
		specs: [][2]string{{"Display", "6.1 inch OLED"}, {"Storage", "128 GB"}},
	},
	{
		name: "Sonora Studio Headphones", slug: "sonora-studio-headphones", sku: "SON-HP-010", category: "audio", brand: "sonora",
		short: "Closed-back, noise cancelling", price: "30.00", stock: 40,
		bestseller: true, image: "products/sonora-studio",
		specs: [][2]string{{"Driver", "40 mm"}, {"Battery", "30 h"}},
	},
	{
		name: "Sonora Mini Speaker", slug: "sonora-mini-speaker", sku: "SON-SP-002", category: "audio", brand: "sonora",
		short: "Pocket bluetooth speaker", price: "24.99", stock: 4,
		image: "products/sonora-mini",
	},
	{
		name: "Hearth Electric Kettle", slug: "hearth-electric-kettle", sku: "HRT-KT-100", category: "home-kitchen", brand: "hearth",
		short: "1.7 L, stainless steel", price: "39.50", compare: "45.00", stock: 15,
		isNew: true, image: "products/hearth-kettle",
	},
	{
		name: "The Go Handbook", slug: "the-go-handbook", sku: "BK-GO-001", category: "books",
		short: "Paperback", price: "12.00", stock: 0,
	},
}

var shippingOptions = []models.ShippingOption{
	{Name: "Standard", Description: "Delivered by postal service", Price: decimal.RequireFromString("5.00"), EstimatedDaysMin: 3, EstimatedDaysMax: 5, IsActive: true, IsDefault: true, FreeShippingThreshold: decimal.NewNullDecimal(decimal.NewFromInt(50)), DisplayOrder: 1},
	{Name: "Express", Description: "Courier delivery", Price: decimal.RequireFromString("15.00"), EstimatedDaysMin: 1, EstimatedDaysMax: 2, IsActive: true, DisplayOrder: 2},
	{Name: "Store pickup", Description: "Collect in store", Price: decimal.Zero, EstimatedDaysMin: 1, EstimatedDaysMax: 1, IsActive: true, DisplayOrder: 3},
}

// Run inserts whatever part of the demo catalog is missing in one transaction.
func Run(ctx context.Context, store repository.Store, logger *slog.Logger) (Result, error) {
	var res Result
	err := store.WithTx(ctx, func(tx repository.Store) error {
		res = Result{}

		categoryIDs, err := seedCategories(ctx, tx, &res)
		if err != nil {
			return err
		}
		brandIDs, err := seedBrands(ctx, tx, &res)
		if err != nil {
			return err
		}
		if err := seedProducts(ctx, tx, categoryIDs, brandIDs, &res); err != nil {
			return err
		}
		return seedShipping(ctx, tx, &res)
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info("seed finished",
		"categories", res.Categories,
		"brands", res.Brands,
		"products", res.Products,
		"shipping_options", res.ShippingOptions,
	)
	return res, nil
}

func seedCategories(ctx context.Context, tx repository.Store, res *Result) (map[string]int, error) {
	ids := make(map[string]int, len(categories))
	for i, c := range categories {
		existing, err := tx.Categories().GetBySlug(ctx, c.slug)
		if err == nil {
			ids[c.slug] = existing.ID
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		category := &models.Category{
			Name:         c.name,
			Slug:         c.slug,
			Icon:         c.icon,
			IsActive:     true,
			DisplayOrder: i,
			Featured:     c.featured,
		}
		if c.parent != "" {
			parentID, ok := ids[c.parent]
			if !ok {
				return nil, fmt.Errorf("category %s: parent %s not seeded", c.slug, c.parent)
			}
			category.ParentID = &parentID
		}
		if err := tx.Categories().Create(ctx, category); err != nil {
			return nil, fmt.Errorf("failed to seed category %s: %w", c.slug, err)
		}
		ids[c.slug] = category.ID
		res.Categories++
	}
	return ids, nil
}

func seedBrands(ctx context.Context, tx repository.Store, res *Result) (map[string]int, error) {
	ids := make(map[string]int, len(brands))
	for _, b := range brands {
		existing, err := tx.Brands().GetBySlug(ctx, b.Slug)
		if err == nil {
			ids[b.Slug] = existing.ID
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		brand := b
		if err := tx.Brands().Create(ctx, &brand); err != nil {
			return nil, fmt.Errorf("failed to seed brand %s: %w", b.Slug, err)
		}
		ids[b.Slug] = brand.ID
		res.Brands++
	}
	return ids, nil
}

func seedProducts(ctx context.Context, tx repository.Store, categoryIDs, brandIDs map[string]int, res *Result) error {
	for _, s := range products {
		_, err := tx.Products().GetBySlug(ctx, s.slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrProductNotFound) {
			return err
		}

		p := &models.Product{
			Name:              s.name,
			Slug:              s.slug,
			SKU:               s.sku,
			ShortDescription:  s.short,
			Description:       s.short,
			ProductType:       models.ProductPhysical,
			Price:             decimal.RequireFromString(s.price),
			Stock:             s.stock,
			LowStockThreshold: 5,
			IsAvailable:       true,
			Featured:          s.featured,
			IsNew:             s.isNew,
			IsBestseller:      s.bestseller,
		}
		if s.compare != "" {
			p.ComparePrice = decimal.NewNullDecimal(decimal.RequireFromString(s.compare))
		}
		if id, ok := categoryIDs[s.category]; ok {
			p.CategoryID = &id
		}
		if id, ok := brandIDs[s.brand]; ok {
			p.BrandID = &id
		}
		if err := tx.Products().Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", s.slug, err)
		}

		if s.image != "" {
			img := &models.ProductImage{
				ProductID: p.ID,
				Image:     assets.Ref{Provider: assets.ProviderCloudinary, Key: s.image},
				AltText:   s.name,
				IsPrimary: true,
			}
			if err := tx.Products().AddImage(ctx, img); err != nil {
				return fmt.Errorf("failed to seed image for %s: %w", s.slug, err)
			}
		}
		for i, spec := range s.specs {
			ps := &models.ProductSpecification{ProductID: p.ID, Name: spec[0], Value: spec[1], DisplayOrder: i}
			if err := tx.Products().AddSpecification(ctx, ps); err != nil {
				return fmt.Errorf("failed to seed specification for %s: %w", s.slug, err)
			}
		}
		res.Products++
	}
	return nil
}

func seedShipping(ctx context.Context, tx repository.Store, res *Result) error {
	existing, err := tx.ShippingOptions().List(ctx, false)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, o := range existing {
		have[o.Name] = true
	}

	for _, o := range shippingOptions {
		if have[o.Name] {
			continue
		}
		option := o
		if err := tx.ShippingOptions().Create(ctx, &option); err != nil {
			return fmt.Errorf("failed to seed shipping option %s: %w", o.Name, err)
		}
		res.ShippingOptions++
	}
	return nil
}
