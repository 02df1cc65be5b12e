package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/boosthive/boosthive/internal/throttle"
)

func newTestHandler(accounts map[string]account) *Handler {
	h := NewHandler([]byte("test-secret"),
		throttle.New(throttle.DefaultPolicy(), throttle.NewMemoryLedger(), nil))
	h.findAccount = func(_ context.Context, email string) (account, bool) {
		a, ok := accounts[email]
		return a, ok
	}
	return h
}

func postLogin(t *testing.T, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := handler(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("login handler: %v", err)
	}
	return rec
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	h := newTestHandler(map[string]account{
		"ana@example.com": {
			ID: "b3d9c1a0-1111-4222-8333-444455556666", Name: "Ana",
			Email: "ana@example.com", Password: hashFor(t, "hunter22"),
			Role: "user", Active: true,
		},
	})

	rec := postLogin(t, h.Login, `{"email":"Ana@Example.com ","password":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("response carries no token")
	}
	if resp.User.ID != "b3d9c1a0-1111-4222-8333-444455556666" ||
		resp.User.Email != "ana@example.com" || resp.User.Role != "user" {
		t.Fatalf("user = %+v", resp.User)
	}
}

func TestSuspendedLoginLooksLikeBadCredentials(t *testing.T) {
	h := newTestHandler(map[string]account{
		"sam@example.com": {
			ID: "c4e0d2b1-1111-4222-8333-444455556666", Name: "Sam",
			Email: "sam@example.com", Password: hashFor(t, "hunter22"),
			Role: "user", Active: false,
		},
	})

	suspended := postLogin(t, h.Login, `{"email":"sam@example.com","password":"hunter22"}`)
	unknown := postLogin(t, h.Login, `{"email":"ghost@example.com","password":"hunter22"}`)

	for name, rec := range map[string]*httptest.ResponseRecorder{"suspended": suspended, "unknown": unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want %d", name, rec.Code, http.StatusUnauthorized)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if body["error"] != "invalid credentials" {
			t.Fatalf("%s error = %v, want the generic credential failure", name, body["error"])
		}
		if body["attempts_remaining"] != float64(2) {
			t.Fatalf("%s attempts_remaining = %v, want 2", name, body["attempts_remaining"])
		}
	}
}

func TestRepeatedFailuresLockTheIdentity(t *testing.T) {
	h := newTestHandler(nil)
	body := `{"email":"x@example.com","password":"nope"}`

	postLogin(t, h.Login, body)
	postLogin(t, h.Login, body)
	if rec := postLogin(t, h.Login, body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third failure status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec := postLogin(t, h.Login, body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("locked identity status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestModeratorLoginRejectsOtherRoles(t *testing.T) {
	h := newTestHandler(map[string]account{
		"ana@example.com": {
			ID: "b3d9c1a0-1111-4222-8333-444455556666", Name: "Ana",
			Email: "ana@example.com", Password: hashFor(t, "hunter22"),
			Role: "user", Active: true,
		},
	})

	rec := postLogin(t, h.ModeratorLogin, `{"email":"ana@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// The miss burned a shared throttle attempt, visible on the public surface.
	rec = postLogin(t, h.Login, `{"email":"ana@example.com","password":"wrong"}`)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["attempts_remaining"] != float64(1) {
		t.Fatalf("attempts_remaining = %v, want 1", body["attempts_remaining"])
	}
}
