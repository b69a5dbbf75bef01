package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validationf("title must not exceed %d characters", 120), KindValidation},
		{"not found", NotFoundf("patient %s not found", "P009"), KindNotFound},
		{"conflict", Conflictf("phone already registered"), KindConflict},
		{"storage", Storage("insert patient", errors.New("connection refused")), KindStorage},
		{"delivery", Delivery("push send", errors.New("timeout")), KindDelivery},
		{"plain error", errors.New("whatever"), KindUnknown},
		{"nil-adjacent wrap", fmt.Errorf("outer: %w", NotFoundf("gone")), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validationf("bad"), http.StatusBadRequest},
		{NotFoundf("missing"), http.StatusNotFound},
		{Conflictf("duplicate"), http.StatusConflict},
		{Storage("db", errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Storage("upsert counter", errors.New("deadlock detected"))
	want := "upsert counter: deadlock detected"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := Validationf("age must be between 1 and 120")
	if plain.Error() != "age must be between 1 and 120" {
		t.Errorf("unexpected message: %q", plain.Error())
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("socket closed")
	err := Storage("query", inner)
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}
