package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  UserBrief `json:"user"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	return h.login(c, "")
}

// ===== Moderator login =====
// Same credentials flow, but only moderator accounts get a token. Failures
// here count against the same throttle record as the public endpoint.
func (h *Handler) ModeratorLogin(c echo.Context) error {
	return h.login(c, "moderator")
}

func (h *Handler) login(c echo.Context, requiredRole string) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	identity := strings.ToLower(strings.TrimSpace(req.Email))
	if identity == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	// The throttle is consulted before credentials are even looked at.
	if res := h.Throttle.Check(identity); !res.Allowed {
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":             res.Reason,
			"remaining_seconds": res.RemainingSeconds,
		})
	}

	// Unknown and suspended accounts answer exactly like a wrong password,
	// and burn a throttle attempt the same way.
	acct, ok := h.findAccount(context.Background(), identity)
	if !ok || !acct.Active {
		return h.failedAttempt(c, identity)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.Password), []byte(req.Password)); err != nil {
		return h.failedAttempt(c, identity)
	}
	if requiredRole != "" && acct.Role != requiredRole {
		return h.failedAttempt(c, identity)
	}

	h.Throttle.RecordSuccess(identity)

	signed, err := h.issueToken(acct.ID, acct.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token: signed,
		User:  UserBrief{ID: acct.ID, Name: acct.Name, Email: acct.Email, Role: acct.Role},
	})
}

func (h *Handler) failedAttempt(c echo.Context, identity string) error {
	res := h.Throttle.RecordFailure(identity)
	if res.Locked {
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":          "Too many failed attempts. Account locked.",
			"locked_minutes": res.LockoutMinutes,
		})
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":              "invalid credentials",
		"attempts_remaining": res.AttemptsRemaining,
	})
}
