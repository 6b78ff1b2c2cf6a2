package handlers

import (
	"errors"
	"net/http"

	"shopsphere/internal/api/middleware"
	"shopsphere/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type paymentResult struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Payment paymentJSON `json:"payment"`
	OrderID int         `json:"order_id"`
}

// Process blocks for the simulated gateway delay. A declined card is a 400
// that still carries the recorded payment.
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req service.ProcessPaymentInput
	if ok := decodeValid(w, r, &req); !ok {
		return
	}

	p, _, err := h.payments.Process(r.Context(), middleware.UserID(r.Context()), req)
	var decline *service.DeclineError
	switch {
	case errors.As(err, &decline):
		writeJSON(w, http.StatusBadRequest, paymentResult{
			Status:  "failed",
			Message: decline.Reason,
			Payment: presentPayment(decline.Payment),
			OrderID: req.OrderID,
		})
		return
	case err != nil:
		writeServiceError(w, r, err, "process payment")
		return
	}

	writeJSON(w, http.StatusOK, paymentResult{
		Status:  "success",
		Message: "Payment processed successfully",
		Payment: presentPayment(p),
		OrderID: p.OrderID,
	})
}

func (h *PaymentHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "order_id", "order")
	if !ok {
		return
	}

	p, err := h.payments.GetByOrder(r.Context(), middleware.UserID(r.Context()), orderID)
	if err != nil {
		writeServiceError(w, r, err, "get payment")
		return
	}

	writeJSON(w, http.StatusOK, presentPayment(p))
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get payments")
		return
	}

	out := make([]paymentJSON, 0, len(list))
	for i := range list {
		out = append(out, presentPayment(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
