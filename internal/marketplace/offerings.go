package marketplace

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

// CreateOffering lets an employee list a service under a game
func CreateOffering(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		GameID      string `json:"game_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.GameID == "" || strings.TrimSpace(req.Title) == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "game_id, title and a positive price are required"})
	}

	offeringID := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO offerings (id, employee_id, game_id, title, description, price)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		offeringID, uid, req.GameID, strings.TrimSpace(req.Title), req.Description, req.Price,
	)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to create offering, check game_id"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"offering_id": offeringID})
}

// ListOfferings returns active offerings, optionally filtered by game
func ListOfferings(c echo.Context) error {
	query := `SELECT id, employee_id, game_id, title, description, price, is_active, created_at
              FROM offerings WHERE is_active = TRUE`
	args := []interface{}{}
	if game := c.QueryParam("game_id"); game != "" {
		query += " AND game_id = $1"
		args = append(args, game)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offerings"})
	}
	defer rows.Close()

	offerings := []Offering{}
	for rows.Next() {
		var o Offering
		if err := rows.Scan(&o.ID, &o.EmployeeID, &o.GameID, &o.Title, &o.Description,
			&o.Price, &o.IsActive, &o.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		offerings = append(offerings, o)
	}

	return c.JSON(http.StatusOK, echo.Map{"offerings": offerings})
}

// GetOffering returns a single offering
func GetOffering(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing offering id in URL"})
	}

	var o Offering
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, employee_id, game_id, title, description, price, is_active, created_at
         FROM offerings WHERE id = $1`, id,
	).Scan(&o.ID, &o.EmployeeID, &o.GameID, &o.Title, &o.Description, &o.Price, &o.IsActive, &o.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
	}

	return c.JSON(http.StatusOK, o)
}

// DeactivateOffering hides an offering from the catalog. Existing requests
// keep running; only new orders are blocked.
func DeactivateOffering(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing offering id in URL"})
	}

	res, err := db.Conn.Exec(context.Background(),
		`UPDATE offerings SET is_active = FALSE WHERE id = $1 AND employee_id = $2`, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update offering"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found or not yours"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Offering deactivated"})
}

// MyOfferings lists the authenticated employee's offerings, active or not
func MyOfferings(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, employee_id, game_id, title, description, price, is_active, created_at
         FROM offerings WHERE employee_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offerings"})
	}
	defer rows.Close()

	offerings := []Offering{}
	for rows.Next() {
		var o Offering
		if err := rows.Scan(&o.ID, &o.EmployeeID, &o.GameID, &o.Title, &o.Description,
			&o.Price, &o.IsActive, &o.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		offerings = append(offerings, o)
	}

	return c.JSON(http.StatusOK, echo.Map{"offerings": offerings})
}
