package handlers

import (
	"net/http"
	"strconv"

	"shopsphere/internal/api/middleware"
	"shopsphere/internal/models"
	"shopsphere/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get orders")
		return
	}

	writeJSON(w, http.StatusOK, presentOrders(list))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "get order")
		return
	}

	writeJSON(w, http.StatusOK, presentOrder(o))
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderInput
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	o, err := h.orders.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create order")
		return
	}

	w.Header().Set("Location", "/orders/"+strconv.Itoa(o.ID))
	writeJSON(w, http.StatusCreated, presentOrder(o))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "cancel order")
		return
	}

	writeJSON(w, http.StatusOK, presentOrder(o))
}

// UpdateStatus is the staff fulfillment endpoint.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "update order status")
		return
	}

	writeJSON(w, http.StatusOK, presentOrder(o))
}
