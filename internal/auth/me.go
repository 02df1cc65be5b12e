package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

// Me returns the authenticated user's profile. The JWT middleware has
// already validated the token and stashed the user id.
func (h *Handler) Me(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	var id, name, email, role, bio, avatarURL string
	var servicesCompleted int
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, name, email, role, bio, avatar_url, services_completed
         FROM users WHERE id = $1`, userID).
		Scan(&id, &name, &email, &role, &bio, &avatarURL, &servicesCompleted)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":                 id,
		"name":               name,
		"email":              email,
		"role":               role,
		"bio":                bio,
		"avatar_url":         avatarURL,
		"services_completed": servicesCompleted,
	})
}
