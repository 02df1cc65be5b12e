package moderator

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

// GET /moderator/stats
func Stats(c echo.Context) error {
	ctx := context.Background()

	var users, offerings, requests, pendingReview, transactions int
	var commissionTotal int64

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM offerings`).Scan(&offerings)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`).Scan(&requests)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM service_completions WHERE status = 'pending_review'`).Scan(&pendingReview)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&transactions)
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(commission), 0) FROM transactions`).Scan(&commissionTotal)

	return c.JSON(http.StatusOK, echo.Map{
		"users":            users,
		"offerings":        offerings,
		"requests":         requests,
		"pending_review":   pendingReview,
		"transactions":     transactions,
		"commission_total": commissionTotal,
	})
}
