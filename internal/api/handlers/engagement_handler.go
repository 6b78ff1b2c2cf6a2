package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shopsphere/internal/api/middleware"
	"shopsphere/internal/assets"
	"shopsphere/internal/models"
	"shopsphere/internal/notify"
	"shopsphere/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type ReviewUpdateRequest struct {
	ProductID int    `json:"product_id"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Title     string `json:"title" validate:"max=200"`
	Comment   string `json:"comment" validate:"required"`
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	var productID int
	if v := r.URL.Query().Get("product_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_id", "invalid product id", nil)
			return
		}
		productID = id
	}

	reviews, err := h.reviews.List(r.Context(), productID, r.URL.Query().Get("product"))
	if err != nil {
		writeServiceError(w, r, err, "get reviews")
		return
	}

	writeJSON(w, http.StatusOK, nonNil(reviews))
}

func (h *ReviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.Mine(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get reviews")
		return
	}

	writeJSON(w, http.StatusOK, nonNil(reviews))
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewInput
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	review, err := h.reviews.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create review")
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "review")
	if !ok {
		return
	}

	var req ReviewUpdateRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	review, err := h.reviews.Update(r.Context(), middleware.UserID(r.Context()), id, service.ReviewInput(req))
	if err != nil {
		writeServiceError(w, r, err, "update review")
		return
	}

	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "review")
	if !ok {
		return
	}

	if err := h.reviews.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "delete review")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

type reviewCheck struct {
	HasReviewed bool           `json:"has_reviewed"`
	Review      *models.Review `json:"review"`
}

func (h *ReviewHandler) Check(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlID(w, r, "product_id", "product")
	if !ok {
		return
	}

	review, err := h.reviews.Check(r.Context(), middleware.UserID(r.Context()), productID)
	if err != nil {
		writeServiceError(w, r, err, "check review")
		return
	}

	writeJSON(w, http.StatusOK, reviewCheck{HasReviewed: review != nil, Review: review})
}

func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reviews.Stats(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err, "get review stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type WishlistHandler struct {
	wishlist *service.WishlistService
	present  presenter
}

func NewWishlistHandler(wishlist *service.WishlistService, resolver assets.Resolver) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist, present: presenter{resolver: resolver}}
}

type WishlistRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

type toggleResponse struct {
	Action  service.WishlistAction `json:"action"`
	Message string                 `json:"message"`
	Item    *wishlistItemJSON      `json:"item,omitempty"`
}

func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.wishlist.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get wishlist")
		return
	}

	out := make([]wishlistItemJSON, 0, len(items))
	for i := range items {
		out = append(out, h.present.wishlistItem(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	item, err := h.wishlist.Add(r.Context(), middleware.UserID(r.Context()), req.ProductID)
	if err != nil {
		writeServiceError(w, r, err, "add to wishlist")
		return
	}

	writeJSON(w, http.StatusCreated, h.present.wishlistItem(item))
}

func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlID(w, r, "product_id", "product")
	if !ok {
		return
	}

	action, item, err := h.wishlist.Toggle(r.Context(), middleware.UserID(r.Context()), productID)
	if err != nil {
		writeServiceError(w, r, err, "toggle wishlist")
		return
	}

	resp := toggleResponse{Action: action, Message: "Product removed from wishlist"}
	if action == service.WishlistAdded {
		out := h.present.wishlistItem(item)
		resp.Message, resp.Item = "Product added to wishlist", &out
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *WishlistHandler) Check(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlID(w, r, "product_id", "product")
	if !ok {
		return
	}

	in, err := h.wishlist.Check(r.Context(), middleware.UserID(r.Context()), productID)
	if err != nil {
		writeServiceError(w, r, err, "check wishlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"in_wishlist": in})
}

func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "wishlist item")
	if !ok {
		return
	}

	if err := h.wishlist.Remove(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "remove wishlist item")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.wishlist.Clear(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "clear wishlist")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Removed %d items from wishlist", n)})
}

type NotificationHandler struct {
	notifications *service.NotificationService
	hub           *notify.Hub
}

// NewNotificationHandler serves the alert store; hub may be nil, which
// disables the websocket endpoint.
func NewNotificationHandler(notifications *service.NotificationService, hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get notifications")
		return
	}

	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "count notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "notification")
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if _, err := h.notifications.MarkAllRead(r.Context(), middleware.UserID(r.Context())); err != nil {
		writeServiceError(w, r, err, "mark notifications read")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "All notifications marked as read"})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "notification")
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "delete notification")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if _, err := h.notifications.Clear(r.Context(), middleware.UserID(r.Context())); err != nil {
		writeServiceError(w, r, err, "clear notifications")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "All notifications cleared"})
}

// Stream upgrades to a websocket that receives the caller's new notifications.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "live notifications are disabled", nil)
		return
	}
	h.hub.ServeWS(w, r, middleware.UserID(r.Context()))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
