package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestOverReceipt_Message(t *testing.T) {
	err := &OverReceiptError{LineID: 1, Requested: 12, Remaining: 5}
	if got := err.Error(); got != "cannot receive 12, only 5 remain on this line" {
		t.Errorf("Error() = %q", got)
	}
}

func TestInsufficientStock_Message(t *testing.T) {
	err := &InsufficientStockError{Requested: 10, Available: 4.5}
	if got := err.Error(); got != "cannot issue 10, only 4.5 available" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("wrap: %w", &ConcurrencyConflictError{Entity: "work_order", ID: 3})) {
		t.Error("conflict should be retryable")
	}
	for _, err := range []error{
		&InvalidTransitionError{Entity: "work_order", From: "DRAFT", To: "COMPLETED"},
		&InsufficientStockError{},
		&OverReceiptError{},
		&ValidationError{Message: "x"},
		nil,
	} {
		if IsRetryable(err) {
			t.Errorf("IsRetryable(%v) = true", err)
		}
	}
	if !IsRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("sqlite busy should be retryable")
	}
}

func TestWithRetry_OnlyOnce(t *testing.T) {
	calls := 0
	err := WithRetry(func() error {
		calls++
		return &ConcurrencyConflictError{Entity: "stock_level", ID: 1}
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if err == nil {
		t.Error("expected error after second attempt")
	}

	calls = 0
	_ = WithRetry(func() error {
		calls++
		return &InvalidTransitionError{}
	})
	if calls != 1 {
		t.Errorf("business rejection retried: calls = %d", calls)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("qty", "must be positive"), http.StatusBadRequest},
		{&InvalidTransitionError{}, http.StatusConflict},
		{&InsufficientStockError{}, http.StatusUnprocessableEntity},
		{&OverReceiptError{}, http.StatusUnprocessableEntity},
		{NotFound("work_order", 9), http.StatusNotFound},
		{&ForbiddenError{Action: "delete work order"}, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
