package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
	"shopsphere/internal/repository/repotest"
)

func TestCreateReviewOncePerProduct(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	reviews := NewReviewService(store)
	p := createProduct(t, store, "Desk Lamp", "25.00", 10)

	first, err := reviews.Create(ctx, 1, ReviewInput{ProductID: p.ID, Rating: 4, Title: "Bright", Comment: "Does the job"})
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", first.ProductName)
	assert.True(t, first.IsApproved)
	assert.False(t, first.IsVerifiedPurchase)

	_, err = reviews.Create(ctx, 1, ReviewInput{ProductID: p.ID, Rating: 1, Comment: "Changed my mind"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "You have already reviewed this product", verr.Fields["product_id"])
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stored, err := reviews.Check(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Rating)

	none, err := reviews.Check(ctx, 2, p.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateReviewValidation(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	reviews := NewReviewService(store)

	_, err := reviews.Create(ctx, 1, ReviewInput{ProductID: 1, Rating: 6, Comment: " "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "rating")
	assert.Contains(t, verr.Fields, "comment")

	_, err = reviews.Create(ctx, 1, ReviewInput{ProductID: 404, Rating: 5, Comment: "Great"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Product not found", verr.Fields["product_id"])
}

func TestReviewOwnership(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	reviews := NewReviewService(store)
	p := createProduct(t, store, "Kettle", "40.00", 10)
	other := createProduct(t, store, "Toaster", "35.00", 10)

	review, err := reviews.Create(ctx, 1, ReviewInput{ProductID: p.ID, Rating: 3, Comment: "Slow to boil"})
	require.NoError(t, err)

	_, err = reviews.Update(ctx, 2, review.ID, ReviewInput{Rating: 1, Comment: "Nope"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, reviews.Delete(ctx, 2, review.ID), ErrForbidden)

	_, err = reviews.Update(ctx, 1, review.ID, ReviewInput{ProductID: other.ID, Rating: 5, Comment: "Moved"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "product_id")

	updated, err := reviews.Update(ctx, 1, review.ID, ReviewInput{Rating: 5, Title: "Grew on me", Comment: "Fine after descaling"})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, p.ID, updated.ProductID)

	require.NoError(t, reviews.Delete(ctx, 1, review.ID))
	_, err = reviews.Update(ctx, 1, review.ID, ReviewInput{Rating: 2, Comment: "Gone"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVerifiedPurchaseFollowsDelivery(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	orders := NewOrderService(store, testResolver, nil, nil, discardLogger())
	reviews := NewReviewService(store)
	p := createProduct(t, store, "Backpack", "55.00", 4)

	order, err := orders.Create(ctx, 1, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	review, err := reviews.Create(ctx, 1, ReviewInput{ProductID: p.ID, Rating: 5, Comment: "Roomy"})
	require.NoError(t, err)
	assert.False(t, review.IsVerifiedPurchase)

	require.NoError(t, store.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusDelivered, models.OrderPaymentPaid))

	list, err := reviews.List(ctx, 0, p.Slug)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsVerifiedPurchase)

	mine, err := reviews.Mine(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestReviewStats(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	reviews := NewReviewService(store)
	p := createProduct(t, store, "Mouse", "20.00", 10)

	for user, rating := range []int{5, 4, 4} {
		_, err := reviews.Create(ctx, user+1, ReviewInput{ProductID: p.ID, Rating: rating, Comment: "ok"})
		require.NoError(t, err)
	}

	stats, err := reviews.Stats(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReviews)
	assert.Equal(t, 4.3, stats.AverageRating)
	assert.Equal(t, map[string]int{"1": 0, "2": 0, "3": 0, "4": 2, "5": 1}, stats.RatingDistribution)

	_, err = reviews.Stats(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWishlistToggle(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	wishlist := NewWishlistService(store)
	p := createProduct(t, store, "Blender", "80.00", 2)

	action, item, err := wishlist.Toggle(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, WishlistAdded, action)
	require.NotNil(t, item.Product)
	assert.Equal(t, "Blender", item.Product.Name)

	in, err := wishlist.Check(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.True(t, in)

	action, _, err = wishlist.Toggle(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, WishlistRemoved, action)

	in, err = wishlist.Check(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.False(t, in)

	_, _, err = wishlist.Toggle(ctx, 1, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWishlistAddRemoveClear(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	wishlist := NewWishlistService(store)
	a := createProduct(t, store, "Chair", "120.00", 2)
	b := createProduct(t, store, "Table", "300.00", 1)

	item, err := wishlist.Add(ctx, 1, a.ID)
	require.NoError(t, err)
	_, err = wishlist.Add(ctx, 1, b.ID)
	require.NoError(t, err)

	_, err = wishlist.Add(ctx, 1, a.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Product already in wishlist", verr.Fields["product_id"])

	_, err = wishlist.Add(ctx, 1, 9999)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Product not found", verr.Fields["product_id"])

	assert.ErrorIs(t, wishlist.Remove(ctx, 2, item.ID), repository.ErrNotFound)
	require.NoError(t, wishlist.Remove(ctx, 1, item.ID))

	items, err := wishlist.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ProductID)

	n, err := wishlist.Clear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationsReadState(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	notifications := NewNotificationService(store)

	for _, title := range []string{"Order Confirmed", "Payment Successful"} {
		require.NoError(t, store.Notifications().Create(ctx, &models.Notification{UserID: 1, Type: models.NotificationOrder, Title: title, Message: "-"}))
	}
	require.NoError(t, store.Notifications().Create(ctx, &models.Notification{UserID: 2, Type: models.NotificationPromo, Title: "Sale", Message: "-"}))

	count, err := notifications.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := notifications.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	read, err := notifications.MarkRead(ctx, 1, list[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = notifications.MarkRead(ctx, 2, list[1].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := notifications.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = notifications.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, notifications.Delete(ctx, 1, list[0].ID))
	cleared, err := notifications.Clear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)
}
