package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"shopsphere/internal/api/middleware"
	"shopsphere/internal/repository"
	"shopsphere/internal/service"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, apiError{
		Error:   code,
		Message: message,
		Details: details,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", map[string]any{"error": err.Error()})
		return false
	}

	if err := dec.Decode(&struct{}{}); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", map[string]any{"error": "extra data after json"})
		return false
	}

	return true
}

// decodeValid decodes the body and runs the struct's validate tags.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}

	err := validate.Struct(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return false
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldPath(fe)] = fieldMessage(fe)
	}
	writeError(w, http.StatusBadRequest, "validation_error", "invalid input", details)
	return false
}

// fieldPath drops the struct name from the namespace: "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	}
	return "Invalid value."
}

// writeServiceError maps service and repository errors onto HTTP responses.
// what describes the operation for the 500 message, e.g. "create order".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var (
		verr     *service.ValidationError
		stock    *service.InsufficientStockError
		conflict *service.StateConflictError
		decline  *service.DeclineError
	)

	switch {
	case errors.As(err, &verr):
		code := "validation_error"
		if errors.Is(err, repository.ErrDuplicate) {
			code = "duplicate"
		}
		writeError(w, http.StatusBadRequest, code, "invalid input", verr.Fields)
	case errors.As(err, &stock):
		writeError(w, http.StatusBadRequest, "insufficient_stock", stock.Error(), map[string]any{
			"items":      stock.Error(),
			"index":      stock.Index,
			"product_id": stock.ProductID,
			"available":  stock.Available,
			"requested":  stock.Requested,
		})
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, "invalid_state", conflict.Message, map[string]string{conflict.Resource: conflict.State})
	case errors.As(err, &decline):
		writeError(w, http.StatusBadRequest, "payment_declined", decline.Reason, nil)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you do not have permission to perform this action", nil)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "duplicate", err.Error(), nil)
	case errors.Is(err, repository.ErrInvalidInput), errors.Is(err, repository.ErrNotEnough):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		middleware.LoggerFrom(r.Context()).Warn("request aborted", "op", what, "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "request timed out", nil)
	default:
		middleware.LoggerFrom(r.Context()).Error("request failed", "op", what, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to "+what, nil)
	}
}

func urlID(w http.ResponseWriter, r *http.Request, param, what string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid "+what+" id", nil)
		return 0, false
	}
	return id, true
}
