package wallet

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/db"
)

// TransactionsHandler returns settled payments the user was party to,
// newest first
func TransactionsHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized or invalid user"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, request_id, from_user_id, to_user_id, amount, commission, net_payout, type, created_at
		 FROM transactions
		 WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.RequestID, &t.FromUserID, &t.ToUserID,
			&t.Amount, &t.Commission, &t.NetPayout, &t.Type, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan error"})
		}
		txs = append(txs, t)
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
