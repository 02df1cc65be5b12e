package moderator

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
	"github.com/boosthive/boosthive/internal/marketplace"
)

// GET /moderator/requests - every request, optionally filtered by status
func ListRequests(c echo.Context) error {
	query := `SELECT id, offering_id, requester_id, employee_id, details, amount, status,
                     employee_response, accepted_at, started_at, completed_at, closed_at, created_at
              FROM service_requests`
	args := []interface{}{}
	if status := c.QueryParam("status"); status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch requests"})
	}
	defer rows.Close()

	requests := []marketplace.RequestView{}
	for rows.Next() {
		var r marketplace.RequestView
		if err := rows.Scan(&r.ID, &r.OfferingID, &r.RequesterID, &r.EmployeeID, &r.Details,
			&r.Amount, &r.Status, &r.EmployeeResponse, &r.AcceptedAt, &r.StartedAt,
			&r.CompletedAt, &r.ClosedAt, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read request record"})
		}
		requests = append(requests, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": requests})
}

// GET /moderator/transactions - the settlement ledger
func ListTransactions(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, request_id, from_user_id, to_user_id, amount, commission, net_payout, type, created_at
         FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	items := []map[string]interface{}{}
	for rows.Next() {
		var id, requestID, fromID, toID, txType string
		var amount, commission, netPayout int64
		var createdAt time.Time
		if err := rows.Scan(&id, &requestID, &fromID, &toID, &amount, &commission, &netPayout, &txType, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transaction record"})
		}
		items = append(items, map[string]interface{}{
			"id":           id,
			"request_id":   requestID,
			"from_user_id": fromID,
			"to_user_id":   toID,
			"amount":       amount,
			"commission":   commission,
			"net_payout":   netPayout,
			"type":         txType,
			"created_at":   createdAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": items})
}
