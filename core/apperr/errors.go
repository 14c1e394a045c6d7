// Package apperr holds the typed errors returned by the maintenance engine.
// Callers switch on them with errors.As; handlers map them to HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ValidationError reports malformed input or a missing required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError is a rejected state change. The entity is left untouched.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type InsufficientStockError struct {
	PartID      uint
	StoreroomID uint
	Available   float64
	Requested   float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot issue %s, only %s available", fmtQty(e.Requested), fmtQty(e.Available))
}

type OverReceiptError struct {
	LineID    uint
	Requested float64
	Remaining float64
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("cannot receive %s, only %s remain on this line", fmtQty(e.Requested), fmtQty(e.Remaining))
}

// ConcurrencyConflictError means a versioned update matched no row. Safe to retry once.
type ConcurrencyConflictError struct {
	Entity string
	ID     uint
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently", e.Entity, e.ID)
}

// SchedulerItemError wraps a failure on one item of a scheduler scan.
type SchedulerItemError struct {
	Scheduler string
	ItemID    uint
	Err       error
}

func (e *SchedulerItemError) Error() string {
	return fmt.Sprintf("%s scheduler: item %d: %v", e.Scheduler, e.ItemID, e.Err)
}

func (e *SchedulerItemError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func NotFound(entity string, id uint) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s requires administrative rights", e.Action)
}

// IsRetryable reports whether err is worth one more attempt with fresh state.
// Business-rule rejections never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var cc *ConcurrencyConflictError
	if errors.As(err, &cc) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		// deadlock, lock wait timeout
		return me.Number == 1213 || me.Number == 1205
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// WithRetry runs fn and repeats it once when the first error is retryable.
func WithRetry(fn func() error) error {
	err := fn()
	if IsRetryable(err) {
		err = fn()
	}
	return err
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		it *InvalidTransitionError
		is *InsufficientStockError
		or *OverReceiptError
		cc *ConcurrencyConflictError
		nf *NotFoundError
		fb *ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &fb):
		return http.StatusForbidden
	case errors.As(err, &it), errors.As(err, &cc):
		return http.StatusConflict
	case errors.As(err, &is), errors.As(err, &or):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func fmtQty(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", q), "0"), ".")
}
