package marketplace

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// ListGames returns the active game catalog
func ListGames(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, name, slug, description, genre, platform, created_at
         FROM games WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch games"})
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.Description, &g.Genre, &g.Platform, &g.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		games = append(games, g)
	}

	return c.JSON(http.StatusOK, echo.Map{"games": games})
}

// CreateGame adds a game to the catalog (moderators only, enforced at the route)
func CreateGame(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Genre       string `json:"genre"`
		Platform    string `json:"platform"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	name := strings.TrimSpace(req.Name)
	gameID := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO games (id, name, slug, description, genre, platform)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		gameID, name, slugify(name), req.Description, req.Genre, req.Platform,
	)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "game already exists or invalid"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"game_id": gameID})
}
