package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"shopsphere/internal/models"
)

type reviewRepo struct {
	db DBTX
}

func NewReviewRepository(db DBTX) ReviewRepository {
	return &reviewRepo{db: db}
}

// Verified purchase is derived from delivered orders at read time.
const reviewSelect = `SELECT
	r.id,
	r.user_id,
	r.product_id,
	r.rating,
	r.title,
	r.comment,
	EXISTS (
		SELECT 1 FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = r.user_id
			AND oi.product_id = r.product_id
			AND o.status = 'delivered'
	),
	r.is_approved,
	r.created_at,
	r.updated_at,
	p.name,
	p.slug
	FROM reviews r
	JOIN products p ON p.id = r.product_id
	`

func scanReview(row pgx.Row, r *models.Review) error {
	return row.Scan(
		&r.ID,
		&r.UserID,
		&r.ProductID,
		&r.Rating,
		&r.Title,
		&r.Comment,
		&r.IsVerifiedPurchase,
		&r.IsApproved,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.ProductName,
		&r.ProductSlug,
	)
}

func validateReview(r *models.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Comment) == "" {
		return fmt.Errorf("%w: comment required", ErrInvalidInput)
	}
	return nil
}

func (r *reviewRepo) Create(ctx context.Context, review *models.Review) error {
	if err := validateReview(review); err != nil {
		return err
	}

	sql := `INSERT INTO reviews (
		user_id,
		product_id,
		rating,
		title,
		comment,
		is_approved,
		created_at,
		updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	RETURNING id
	`

	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	err := r.db.QueryRow(ctx, sql,
		review.UserID,
		review.ProductID,
		review.Rating,
		review.Title,
		review.Comment,
		review.IsApproved,
		now,
	).Scan(&review.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: review for product %d", ErrDuplicate, review.ProductID)
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *reviewRepo) Update(ctx context.Context, review *models.Review) error {
	if err := validateReview(review); err != nil {
		return err
	}

	sql := `UPDATE reviews SET
		rating = $1,
		title = $2,
		comment = $3,
		updated_at = NOW()
	WHERE id = $4
	RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, sql, review.Rating, review.Title, review.Comment, review.ID).Scan(&review.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update review %d: %w", review.ID, err)
	}

	return nil
}

func (r *reviewRepo) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *reviewRepo) GetByID(ctx context.Context, id int) (*models.Review, error) {
	var review models.Review
	if err := scanReview(r.db.QueryRow(ctx, reviewSelect+`WHERE r.id = $1`, id), &review); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review %d: %w", id, err)
	}

	return &review, nil
}

func (r *reviewRepo) GetByUserAndProduct(ctx context.Context, userID, productID int) (*models.Review, error) {
	var review models.Review
	row := r.db.QueryRow(ctx, reviewSelect+`WHERE r.user_id = $1 AND r.product_id = $2`, userID, productID)
	if err := scanReview(row, &review); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review of user %d for product %d: %w", userID, productID, err)
	}

	return &review, nil
}

func (r *reviewRepo) List(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID > 0 {
		args = append(args, f.ProductID)
		where = append(where, "r.product_id = $"+strconv.Itoa(len(args)))
	}
	if f.ProductSlug != "" {
		args = append(args, f.ProductSlug)
		where = append(where, "p.slug = $"+strconv.Itoa(len(args)))
	}
	if f.UserID > 0 {
		args = append(args, f.UserID)
		where = append(where, "r.user_id = $"+strconv.Itoa(len(args)))
	}
	if f.ApprovedOnly {
		where = append(where, "r.is_approved")
	}

	sql := reviewSelect
	if len(where) > 0 {
		sql += "WHERE " + strings.Join(where, " AND ") + " "
	}
	sql += "ORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := scanReview(rows, &review); err != nil {
			return nil, fmt.Errorf("failed to scan reviews: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return reviews, nil
}

func (r *reviewRepo) Stats(ctx context.Context, productID int) (*models.ReviewStats, error) {
	sql := `SELECT rating, COUNT(*)
	FROM reviews
	WHERE product_id = $1 AND is_approved
	GROUP BY rating
	`

	rows, err := r.db.Query(ctx, sql, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review stats %d: %w", productID, err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("failed to scan review stats: %w", err)
		}
		counts[rating] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return NewReviewStats(counts), nil
}

// NewReviewStats builds stats from per-rating counts. The average is rounded
// to one decimal and every rating from 1 to 5 appears in the distribution.
func NewReviewStats(counts map[int]int) *models.ReviewStats {
	stats := &models.ReviewStats{RatingDistribution: make(map[string]int, 5)}

	sum := 0
	for rating := 1; rating <= 5; rating++ {
		n := counts[rating]
		stats.RatingDistribution[strconv.Itoa(rating)] = n
		stats.TotalReviews += n
		sum += rating * n
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = math.Round(float64(sum)/float64(stats.TotalReviews)*10) / 10
	}

	return stats
}
