package moderator

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

type UserRow struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	IsActive          bool      `json:"is_active"`
	ServicesCompleted int       `json:"services_completed"`
	CreatedAt         time.Time `json:"created_at"`
}

// GET /moderator/users
func ListUsers(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, name, email, role, is_active, services_completed, created_at
         FROM users ORDER BY created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch users"})
	}
	defer rows.Close()

	users := []UserRow{}
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.ServicesCompleted, &u.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read user record"})
		}
		users = append(users, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// POST /moderator/users/:id/suspend and /reinstate
func SetUserActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := c.Param("id")
		if uid == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id in URL"})
		}

		// A moderator cannot suspend another moderator
		res, err := db.Conn.Exec(context.Background(),
			`UPDATE users SET is_active = $1, updated_at = NOW()
             WHERE id = $2 AND role <> 'moderator'`, active, uid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
		}
		if res.RowsAffected() == 0 {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found or not modifiable"})
		}

		msg := "User suspended"
		if active {
			msg = "User reinstated"
		}
		return c.JSON(http.StatusOK, echo.Map{"message": msg})
	}
}
