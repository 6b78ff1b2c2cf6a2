package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

type ReviewInput struct {
	ProductID int    `json:"product_id" validate:"required,gt=0"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Title     string `json:"title" validate:"max=200"`
	Comment   string `json:"comment" validate:"required"`
}

type ReviewService struct {
	store repository.Store
}

func NewReviewService(store repository.Store) *ReviewService {
	return &ReviewService{store: store}
}

func validateReview(in ReviewInput) error {
	verr := &ValidationError{}
	if in.Rating < 1 || in.Rating > 5 {
		verr.add("rating", "Rating must be between 1 and 5.")
	}
	if strings.TrimSpace(in.Comment) == "" {
		verr.add("comment", "This field is required.")
	}
	if utf8.RuneCountInString(in.Title) > 200 {
		verr.add("title", "Ensure this field has no more than 200 characters.")
	}
	return verr.orNil()
}

// Create stores the user's only review of a product.
func (s *ReviewService) Create(ctx context.Context, userID int, in ReviewInput) (*models.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:     userID,
		ProductID:  in.ProductID,
		Rating:     in.Rating,
		Title:      in.Title,
		Comment:    in.Comment,
		IsApproved: true,
	}
	if err := s.store.Reviews().Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, &ValidationError{
				Fields: map[string]string{"product_id": "You have already reviewed this product"},
				Err:    err,
			}
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, &ValidationError{
				Fields: map[string]string{"product_id": "Product not found"},
				Err:    err,
			}
		}
		return nil, err
	}

	return s.store.Reviews().GetByID(ctx, review.ID)
}

func (s *ReviewService) owned(ctx context.Context, userID, reviewID int) (*models.Review, error) {
	review, err := s.store.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, ErrForbidden
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, userID, reviewID int, in ReviewInput) (*models.Review, error) {
	review, err := s.owned(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}
	if in.ProductID != 0 && in.ProductID != review.ProductID {
		return nil, invalid("product_id", "The reviewed product cannot be changed.")
	}
	in.ProductID = review.ProductID
	if err := validateReview(in); err != nil {
		return nil, err
	}

	review.Rating, review.Title, review.Comment = in.Rating, in.Title, in.Comment
	if err := s.store.Reviews().Update(ctx, review); err != nil {
		return nil, err
	}

	return s.store.Reviews().GetByID(ctx, review.ID)
}

func (s *ReviewService) Delete(ctx context.Context, userID, reviewID int) error {
	if _, err := s.owned(ctx, userID, reviewID); err != nil {
		return err
	}
	return s.store.Reviews().Delete(ctx, reviewID)
}

// List returns approved reviews, optionally narrowed to one product.
func (s *ReviewService) List(ctx context.Context, productID int, productSlug string) ([]models.Review, error) {
	return s.store.Reviews().List(ctx, repository.ReviewFilter{
		ProductID:    productID,
		ProductSlug:  productSlug,
		ApprovedOnly: true,
	})
}

func (s *ReviewService) Mine(ctx context.Context, userID int) ([]models.Review, error) {
	return s.store.Reviews().List(ctx, repository.ReviewFilter{UserID: userID})
}

// Check returns the user's review of a product, or nil when there is none.
func (s *ReviewService) Check(ctx context.Context, userID, productID int) (*models.Review, error) {
	review, err := s.store.Reviews().GetByUserAndProduct(ctx, userID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return review, err
}

func (s *ReviewService) Stats(ctx context.Context, productSlug string) (*models.ReviewStats, error) {
	product, err := s.store.Products().GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, err
	}
	return s.store.Reviews().Stats(ctx, product.ID)
}

type WishlistAction string

const (
	WishlistAdded   WishlistAction = "added"
	WishlistRemoved WishlistAction = "removed"
)

type WishlistService struct {
	store repository.Store
}

func NewWishlistService(store repository.Store) *WishlistService {
	return &WishlistService{store: store}
}

// Toggle adds the product when absent and removes it when present.
func (s *WishlistService) Toggle(ctx context.Context, userID, productID int) (WishlistAction, *models.WishlistItem, error) {
	var (
		action WishlistAction
		item   *models.WishlistItem
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Wishlist().Get(ctx, userID, productID)
		switch {
		case err == nil:
			action, item = WishlistRemoved, existing
			return tx.Wishlist().Remove(ctx, userID, productID)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		product, err := tx.Products().GetByID(ctx, productID)
		if err != nil {
			return err
		}
		item = &models.WishlistItem{UserID: userID, ProductID: productID}
		if err := tx.Wishlist().Add(ctx, item); err != nil {
			return err
		}
		item.Product = product
		action = WishlistAdded
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return action, item, nil
}

func (s *WishlistService) Add(ctx context.Context, userID, productID int) (*models.WishlistItem, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("product_id", "Product not found")
		}
		return nil, err
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.store.Wishlist().Add(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ValidationError{
				Fields: map[string]string{"product_id": "Product already in wishlist"},
				Err:    err,
			}
		}
		return nil, err
	}
	item.Product = product
	return item, nil
}

func (s *WishlistService) List(ctx context.Context, userID int) ([]models.WishlistItem, error) {
	return s.store.Wishlist().ListByUser(ctx, userID)
}

func (s *WishlistService) Check(ctx context.Context, userID, productID int) (bool, error) {
	_, err := s.store.Wishlist().Get(ctx, userID, productID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *WishlistService) Remove(ctx context.Context, userID, itemID int) error {
	return s.store.Wishlist().DeleteByID(ctx, userID, itemID)
}

func (s *WishlistService) Clear(ctx context.Context, userID int) (int64, error) {
	return s.store.Wishlist().Clear(ctx, userID)
}

type NotificationService struct {
	store repository.Store
}

func NewNotificationService(store repository.Store) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, userID int) ([]models.Notification, error) {
	return s.store.Notifications().ListByUser(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int) (int, error) {
	return s.store.Notifications().UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int) (*models.Notification, error) {
	return s.store.Notifications().MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id int) error {
	return s.store.Notifications().Delete(ctx, userID, id)
}

func (s *NotificationService) Clear(ctx context.Context, userID int) (int64, error) {
	return s.store.Notifications().Clear(ctx, userID)
}
