package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
)

type categoryRepo struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

const categorySelect = `SELECT
	c.id,
	c.name,
	c.slug,
	c.description,
	c.icon,
	c.parent_id,
	COALESCE(p.name, ''),
	c.is_active,
	c.display_order,
	c.featured,
	c.created_at,
	c.updated_at
	FROM categories c
	LEFT JOIN categories p ON p.id = c.parent_id
	`

func scanCategory(row pgx.Row, c *models.Category) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.Icon,
		&c.ParentID,
		&c.ParentName,
		&c.IsActive,
		&c.DisplayOrder,
		&c.Featured,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	if c.Name == "" || c.Slug == "" {
		return fmt.Errorf("%w: category name and slug required", ErrInvalidInput)
	}
	if c.Icon == "" {
		c.Icon = "tag"
	}
	if _, ok := models.CategoryIcons[c.Icon]; !ok {
		return fmt.Errorf("%w: unknown category icon '%s'", ErrInvalidInput, c.Icon)
	}
	if c.DisplayOrder < 0 {
		return fmt.Errorf("%w: display order cannot be negative", ErrInvalidInput)
	}

	sql := `INSERT INTO categories (
		name,
		slug,
		description,
		icon,
		parent_id,
		is_active,
		display_order,
		featured,
		created_at,
		updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	RETURNING id
	`

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := r.db.QueryRow(ctx, sql,
		c.Name,
		c.Slug,
		c.Description,
		c.Icon,
		c.ParentID,
		c.IsActive,
		c.DisplayOrder,
		c.Featured,
		now,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %q already exists", ErrDuplicate, c.Slug)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown parent category", ErrInvalidInput)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := scanCategory(r.db.QueryRow(ctx, categorySelect+`WHERE c.slug = $1`, slug), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category %q: %w", slug, err)
	}

	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	sql := categorySelect
	if activeOnly {
		sql += `WHERE c.is_active `
	}
	sql += `ORDER BY c.display_order, c.name`

	return r.query(ctx, sql)
}

func (r *categoryRepo) Children(ctx context.Context, parentID int) ([]models.Category, error) {
	return r.query(ctx, categorySelect+`WHERE c.parent_id = $1 AND c.is_active ORDER BY c.display_order, c.name`, parentID)
}

func (r *categoryRepo) query(ctx context.Context, sql string, args ...any) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan categories: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return categories, nil
}

type brandRepo struct {
	db DBTX
}

func NewBrandRepository(db DBTX) BrandRepository {
	return &brandRepo{db: db}
}

const brandSelect = `SELECT
	id,
	name,
	slug,
	description,
	website,
	logo_provider,
	logo_key,
	is_active,
	is_featured,
	created_at,
	updated_at
	FROM brands
	`

func scanBrand(row pgx.Row, b *models.Brand) error {
	var provider, key pgtype.Text
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Slug,
		&b.Description,
		&b.Website,
		&provider,
		&key,
		&b.IsActive,
		&b.IsFeatured,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if provider.Valid && key.Valid {
		b.Logo = &assets.Ref{Provider: assets.Provider(provider.String), Key: key.String}
	}
	return nil
}

func (r *brandRepo) Create(ctx context.Context, b *models.Brand) error {
	if b.Name == "" || b.Slug == "" {
		return fmt.Errorf("%w: brand name and slug required", ErrInvalidInput)
	}

	var provider, key *string
	if b.Logo != nil && !b.Logo.IsZero() {
		if err := b.Logo.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		p := string(b.Logo.Provider)
		provider, key = &p, &b.Logo.Key
	}

	sql := `INSERT INTO brands (
		name,
		slug,
		description,
		website,
		logo_provider,
		logo_key,
		is_active,
		is_featured,
		created_at,
		updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	RETURNING id
	`

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	err := r.db.QueryRow(ctx, sql,
		b.Name,
		b.Slug,
		b.Description,
		b.Website,
		provider,
		key,
		b.IsActive,
		b.IsFeatured,
		now,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: brand %q already exists", ErrDuplicate, b.Name)
		}
		return fmt.Errorf("failed to create brand: %w", err)
	}

	return nil
}

func (r *brandRepo) GetBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	var b models.Brand
	if err := scanBrand(r.db.QueryRow(ctx, brandSelect+`WHERE slug = $1`, slug), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get brand %q: %w", slug, err)
	}

	return &b, nil
}

func (r *brandRepo) List(ctx context.Context, activeOnly bool) ([]models.Brand, error) {
	sql := brandSelect
	if activeOnly {
		sql += `WHERE is_active `
	}
	sql += `ORDER BY name`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get brands: %w", err)
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		var b models.Brand
		if err := scanBrand(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan brands: %w", err)
		}
		brands = append(brands, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return brands, nil
}

type shippingOptionRepo struct {
	db DBTX
}

func NewShippingOptionRepository(db DBTX) ShippingOptionRepository {
	return &shippingOptionRepo{db: db}
}

func (r *shippingOptionRepo) Create(ctx context.Context, s *models.ShippingOption) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: shipping option name required", ErrInvalidInput)
	}
	if s.EstimatedDaysMin > s.EstimatedDaysMax {
		return fmt.Errorf("%w: estimated days min exceeds max", ErrInvalidInput)
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("%w: shipping price cannot be negative", ErrInvalidInput)
	}

	sql := `INSERT INTO shipping_options (
		name,
		description,
		price,
		estimated_days_min,
		estimated_days_max,
		is_active,
		is_default,
		free_shipping_threshold,
		regions,
		display_order
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql,
		s.Name,
		s.Description,
		s.Price,
		s.EstimatedDaysMin,
		s.EstimatedDaysMax,
		s.IsActive,
		s.IsDefault,
		s.FreeShippingThreshold,
		s.Regions,
		s.DisplayOrder,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shipping option: %w", err)
	}

	return nil
}

func (r *shippingOptionRepo) List(ctx context.Context, activeOnly bool) ([]models.ShippingOption, error) {
	sql := `SELECT
		id,
		name,
		description,
		price,
		estimated_days_min,
		estimated_days_max,
		is_active,
		is_default,
		free_shipping_threshold,
		regions,
		display_order,
		created_at
	FROM shipping_options
	`
	if activeOnly {
		sql += `WHERE is_active `
	}
	sql += `ORDER BY display_order, price`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get shipping options: %w", err)
	}
	defer rows.Close()

	var options []models.ShippingOption
	for rows.Next() {
		var s models.ShippingOption
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.Price,
			&s.EstimatedDaysMin,
			&s.EstimatedDaysMax,
			&s.IsActive,
			&s.IsDefault,
			&s.FreeShippingThreshold,
			&s.Regions,
			&s.DisplayOrder,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipping options: %w", err)
		}
		options = append(options, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return options, nil
}
