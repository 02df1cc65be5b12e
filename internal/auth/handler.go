package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boosthive/boosthive/internal/db"
	"github.com/boosthive/boosthive/internal/throttle"
)

// account is the credential row the login path works with.
type account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
	Active   bool
}

// Handler serves the auth endpoints. The throttle is shared across every
// login surface so repeated failures against one email lock them all.
type Handler struct {
	Secret   []byte
	Throttle *throttle.Throttle

	findAccount func(ctx context.Context, email string) (account, bool)
}

func NewHandler(secret []byte, th *throttle.Throttle) *Handler {
	return &Handler{Secret: secret, Throttle: th, findAccount: findAccountPg}
}

func findAccountPg(ctx context.Context, email string) (account, bool) {
	var a account
	err := db.Conn.QueryRow(ctx, `
        SELECT id, name, email, password, role, is_active FROM users WHERE email = $1
    `, email).Scan(&a.ID, &a.Name, &a.Email, &a.Password, &a.Role, &a.Active)
	if err != nil {
		return account{}, false
	}
	return a, true
}

func (h *Handler) issueToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.Secret)
}
