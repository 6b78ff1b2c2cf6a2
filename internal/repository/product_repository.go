package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"shopsphere/internal/models"
)

type productRepo struct {
	db DBTX
}

func NewProductRepository(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `
	id,
	name,
	slug,
	sku,
	description,
	short_description,
	product_type,
	price,
	compare_price,
	stock,
	low_stock_threshold,
	is_available,
	category_id,
	brand_id,
	weight,
	dimensions,
	featured,
	is_new,
	is_bestseller,
	created_at,
	updated_at`

func productFields(p *models.Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.SKU,
		&p.Description,
		&p.ShortDescription,
		&p.ProductType,
		&p.Price,
		&p.ComparePrice,
		&p.Stock,
		&p.LowStockThreshold,
		&p.IsAvailable,
		&p.CategoryID,
		&p.BrandID,
		&p.Weight,
		&p.Dimensions,
		&p.Featured,
		&p.IsNew,
		&p.IsBestseller,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanProduct(row pgx.Row, p *models.Product) error {
	return row.Scan(productFields(p)...)
}

// prefixed qualifies a newline separated column list with a table alias.
func prefixed(alias, columns string) string {
	return strings.ReplaceAll(columns, "\n\t", "\n\t"+alias+".")
}

func validateProduct(p *models.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name required", ErrInvalidInput)
	}
	if p.Slug == "" || p.SKU == "" {
		return fmt.Errorf("%w: product slug and sku required", ErrInvalidInput)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: product price should be positive", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: product stock cannot be negative", ErrInvalidInput)
	}
	if p.ProductType == "" {
		p.ProductType = models.ProductPhysical
	}
	if !p.ProductType.Valid() {
		return fmt.Errorf("%w: invalid product type '%s'", ErrInvalidInput, p.ProductType)
	}
	return nil
}

func productWriteError(err error, op string) error {
	switch code, constraint := pgCode(err); code {
	case uniqueViolation:
		switch {
		case strings.Contains(constraint, "sku"):
			return fmt.Errorf("%w: sku already exists", ErrDuplicate)
		case strings.Contains(constraint, "slug"):
			return fmt.Errorf("%w: slug already exists", ErrDuplicate)
		}
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case foreignKeyViolation:
		return fmt.Errorf("%w: unknown category or brand", ErrInvalidInput)
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	sql := `
		INSERT INTO products (
			name,
			slug,
			sku,
			description,
			short_description,
			product_type,
			price,
			compare_price,
			stock,
			low_stock_threshold,
			is_available,
			category_id,
			brand_id,
			weight,
			dimensions,
			featured,
			is_new,
			is_bestseller,
			created_at,
			updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
	RETURNING id
	`

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := r.db.QueryRow(ctx, sql,
		p.Name,
		p.Slug,
		p.SKU,
		p.Description,
		p.ShortDescription,
		p.ProductType,
		p.Price,
		p.ComparePrice,
		p.Stock,
		p.LowStockThreshold,
		p.IsAvailable,
		p.CategoryID,
		p.BrandID,
		p.Weight,
		p.Dimensions,
		p.Featured,
		p.IsNew,
		p.IsBestseller,
		now,
	).Scan(&p.ID)
	if err != nil {
		return productWriteError(err, "create")
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product models.Product
	if err := scanProduct(r.db.QueryRow(ctx, sql, id), &product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id %d: %w", id, err)
	}

	return &product, nil
}

func (r *productRepo) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	var product models.Product
	if err := scanProduct(r.db.QueryRow(ctx, sql, slug), &product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by slug %q: %w", slug, err)
	}

	return &product, nil
}

func (r *productRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.List(ctx, ProductFilter{IncludeHidden: true, Ordering: "id"})
}

func (r *productRepo) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeHidden {
		where = append(where, "p.is_available")
	}
	if len(f.CategoryIDs) > 0 {
		where = append(where, "p.category_id = ANY("+arg(f.CategoryIDs)+"::int[])")
	}
	if f.BrandSlug != "" {
		where = append(where, "p.brand_id IN (SELECT id FROM brands WHERE slug = "+arg(f.BrandSlug)+")")
	}
	if f.MinPrice.Valid {
		where = append(where, "p.price >= "+arg(f.MinPrice.Decimal))
	}
	if f.MaxPrice.Valid {
		where = append(where, "p.price <= "+arg(f.MaxPrice.Decimal))
	}
	if f.InStock {
		where = append(where, "p.stock > 0")
	}
	if f.OnSale {
		where = append(where, "p.compare_price IS NOT NULL AND p.compare_price > 0")
	}
	if f.Featured != nil {
		where = append(where, "p.featured = "+arg(*f.Featured))
	}
	if f.IsNew != nil {
		where = append(where, "p.is_new = "+arg(*f.IsNew))
	}
	if f.IsBestseller != nil {
		where = append(where, "p.is_bestseller = "+arg(*f.IsBestseller))
	}
	if f.RelatedTo > 0 {
		id := arg(f.RelatedTo)
		where = append(where, "p.id <> "+id+" AND ("+
			"p.category_id = (SELECT category_id FROM products WHERE id = "+id+") OR "+
			"p.brand_id = (SELECT brand_id FROM products WHERE id = "+id+"))")
	}
	if f.Search != "" {
		pattern := arg("%" + f.Search + "%")
		where = append(where, "(p.name ILIKE "+pattern+" OR p.description ILIKE "+pattern+
			" OR p.short_description ILIKE "+pattern+" OR p.sku ILIKE "+pattern+")")
	}

	sql := `SELECT ` + prefixed("p", productColumns) + ` FROM products p`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY " + orderClause(f.Ordering)
	if f.Limit > 0 {
		sql += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		sql += " OFFSET " + arg(f.Offset)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}

func orderClause(o ProductOrdering) string {
	switch o {
	case OrderOldest:
		return "p.created_at, p.id"
	case OrderPriceAsc:
		return "p.price, p.id"
	case OrderPriceDesc:
		return "p.price DESC, p.id"
	case OrderNameAsc:
		return "p.name, p.id"
	case OrderNameDesc:
		return "p.name DESC, p.id"
	case OrderStockAsc:
		return "p.stock, p.id"
	case OrderStockDesc:
		return "p.stock DESC, p.id"
	case "id":
		return "p.id"
	}
	return "p.created_at DESC, p.id DESC"
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if err := validateProduct(p); err != nil {
		return err
	}

	sql := `
	UPDATE products
	SET
		name = $1,
		slug = $2,
		sku = $3,
		description = $4,
		short_description = $5,
		product_type = $6,
		price = $7,
		compare_price = $8,
		stock = $9,
		low_stock_threshold = $10,
		is_available = $11,
		category_id = $12,
		brand_id = $13,
		weight = $14,
		dimensions = $15,
		featured = $16,
		is_new = $17,
		is_bestseller = $18,
		updated_at = $19
	WHERE id = $20
	RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql,
		p.Name,
		p.Slug,
		p.SKU,
		p.Description,
		p.ShortDescription,
		p.ProductType,
		p.Price,
		p.ComparePrice,
		p.Stock,
		p.LowStockThreshold,
		p.IsAvailable,
		p.CategoryID,
		p.BrandID,
		p.Weight,
		p.Dimensions,
		p.Featured,
		p.IsNew,
		p.IsBestseller,
		time.Now(),
		p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return productWriteError(err, "update")
	}

	return nil
}

func (r *productRepo) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *productRepo) UpdateStock(ctx context.Context, id int, change int) (int, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	sql := `UPDATE products SET
		stock = stock + $1,
		updated_at = NOW()
	WHERE id = $2 AND stock + $1 >= 0
	RETURNING stock
	`

	var stock int
	err := r.db.QueryRow(ctx, sql, change, id).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to update product stock %d: %w", id, err)
	}

	var current int
	err = r.db.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to read product stock %d: %w", id, err)
	}

	return current, fmt.Errorf("%w: current %d, requested change %d", ErrNotEnough, current, change)
}

func (r *productRepo) ListImages(ctx context.Context, productID int) ([]models.ProductImage, error) {
	sql := `SELECT
		id,
		product_id,
		image_provider,
		image_key,
		alt_text,
		is_primary,
		display_order,
		created_at
	FROM product_images
	WHERE product_id = $1
	ORDER BY display_order, is_primary DESC, id
	`

	rows, err := r.db.Query(ctx, sql, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product images %d: %w", productID, err)
	}
	defer rows.Close()

	var images []models.ProductImage
	for rows.Next() {
		var img models.ProductImage
		err := rows.Scan(
			&img.ID,
			&img.ProductID,
			&img.Image.Provider,
			&img.Image.Key,
			&img.AltText,
			&img.IsPrimary,
			&img.DisplayOrder,
			&img.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return images, nil
}

// AddImage clears the previous primary flag when the new image is primary;
// run it inside Store.WithTx so both statements commit together.
func (r *productRepo) AddImage(ctx context.Context, img *models.ProductImage) error {
	if err := img.Image.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if img.DisplayOrder < 0 {
		return fmt.Errorf("%w: display order cannot be negative", ErrInvalidInput)
	}

	if img.IsPrimary {
		_, err := r.db.Exec(ctx,
			`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`,
			img.ProductID,
		)
		if err != nil {
			return fmt.Errorf("failed to reset primary image: %w", err)
		}
	}

	sql := `INSERT INTO product_images (
		product_id,
		image_provider,
		image_key,
		alt_text,
		is_primary,
		display_order
	) VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql,
		img.ProductID,
		img.Image.Provider,
		img.Image.Key,
		img.AltText,
		img.IsPrimary,
		img.DisplayOrder,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create product image: %w", err)
	}

	return nil
}

func (r *productRepo) ListSpecifications(ctx context.Context, productID int) ([]models.ProductSpecification, error) {
	sql := `SELECT id, product_id, name, value, display_order
	FROM product_specifications
	WHERE product_id = $1
	ORDER BY display_order, id
	`

	rows, err := r.db.Query(ctx, sql, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product specifications %d: %w", productID, err)
	}
	defer rows.Close()

	var specs []models.ProductSpecification
	for rows.Next() {
		var s models.ProductSpecification
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Name, &s.Value, &s.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan product specification: %w", err)
		}
		specs = append(specs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return specs, nil
}

func (r *productRepo) AddSpecification(ctx context.Context, s *models.ProductSpecification) error {
	if s.Name == "" || s.Value == "" {
		return fmt.Errorf("%w: specification name and value required", ErrInvalidInput)
	}

	sql := `INSERT INTO product_specifications (product_id, name, value, display_order)
	VALUES ($1, $2, $3, $4)
	RETURNING id
	`

	err := r.db.QueryRow(ctx, sql, s.ProductID, s.Name, s.Value, s.DisplayOrder).Scan(&s.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create product specification: %w", err)
	}

	return nil
}
