package user

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

// GET /users/:id/profile
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	var (
		id                string
		name              string
		bio               string
		avatarURL         string
		role              string
		servicesCompleted int
		createdAt         time.Time
	)

	err := db.Conn.QueryRow(context.Background(), `
		SELECT id, name, bio, avatar_url, role, services_completed, created_at
		FROM users
		WHERE id = $1 AND is_active = TRUE
	`, userID).Scan(&id, &name, &bio, &avatarURL, &role, &servicesCompleted, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}

	profile := echo.Map{
		"id":         id,
		"name":       name,
		"bio":        bio,
		"avatar_url": avatarURL,
		"role":       role,
		"created_at": createdAt.Format(time.RFC3339),
	}

	// Providers expose their track record
	if role == "employee" {
		profile["services_completed"] = servicesCompleted

		var activeOfferings int
		_ = db.Conn.QueryRow(context.Background(),
			`SELECT COUNT(*) FROM offerings WHERE employee_id = $1 AND is_active = TRUE`,
			id).Scan(&activeOfferings)
		profile["active_offerings"] = activeOfferings
	}

	return c.JSON(http.StatusOK, profile)
}
