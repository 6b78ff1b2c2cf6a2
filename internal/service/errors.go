package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"shopsphere/internal/models"
)

var ErrForbidden = errors.New("forbidden")

// ValidationError carries field-level messages keyed by request field name.
// Err, when set, is the underlying cause (for example repository.ErrDuplicate).
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InsufficientStockError names the order item whose quantity exceeds stock.
type InsufficientStockError struct {
	Index     int
	ProductID int
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d", e.Name, e.Available)
}

// StateConflictError rejects an operation that the resource's current state forbids.
type StateConflictError struct {
	Resource string
	State    string
	Message  string
}

func (e *StateConflictError) Error() string { return e.Message }

// DeclineError is returned when the gateway declines a card. The failed
// payment attempt has already been recorded.
type DeclineError struct {
	Reason  string
	Payment *models.Payment
}

func (e *DeclineError) Error() string { return e.Reason }
