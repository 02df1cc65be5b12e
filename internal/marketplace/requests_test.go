package marketplace

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/lifecycle"
)

func TestWriteLifecycleErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"state conflict", &lifecycle.StateConflictError{Current: "in_progress", Expected: "pending"}, http.StatusBadRequest},
		{"not found", lifecycle.ErrNotFound, http.StatusNotFound},
		{"not allowed", lifecycle.ErrNotAllowed, http.StatusForbidden},
		{"invalid input", lifecycle.ErrInvalidInput, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			if err := WriteLifecycleError(c, tc.err); err != nil {
				t.Fatalf("WriteLifecycleError: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
