package moderator

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/alerts"
	"github.com/boosthive/boosthive/internal/chat"
	"github.com/boosthive/boosthive/internal/db"
	"github.com/boosthive/boosthive/internal/lifecycle"
	"github.com/boosthive/boosthive/internal/marketplace"
)

// Handler serves the settlement endpoints. The engine owns the commission
// math and the closing transaction.
type Handler struct {
	Engine *lifecycle.SettlementEngine
}

func NewHandler(engine *lifecycle.SettlementEngine) *Handler {
	return &Handler{Engine: engine}
}

// PendingCompletion is a queue row with enough request context to review
type PendingCompletion struct {
	ID            string    `json:"id"`
	RequestID     string    `json:"request_id"`
	EmployeeNotes string    `json:"employee_notes"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
	RequesterName string    `json:"requester_name"`
	EmployeeName  string    `json:"employee_name"`
	OfferingTitle string    `json:"offering_title"`
	Amount        int64     `json:"amount"`
}

// GET /moderator/completions - the review queue, oldest first
func (h *Handler) ListPending(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT sc.id, sc.request_id, sc.employee_notes, sc.status, sc.submitted_at,
                ru.name, eu.name, o.title, sr.amount
         FROM service_completions sc
         JOIN service_requests sr ON sr.id = sc.request_id
         JOIN users ru ON ru.id = sr.requester_id
         JOIN users eu ON eu.id = sr.employee_id
         JOIN offerings o ON o.id = sr.offering_id
         WHERE sc.status = 'pending_review'
         ORDER BY sc.submitted_at ASC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch completions"})
	}
	defer rows.Close()

	items := []PendingCompletion{}
	for rows.Next() {
		var p PendingCompletion
		if err := rows.Scan(&p.ID, &p.RequestID, &p.EmployeeNotes, &p.Status, &p.SubmittedAt,
			&p.RequesterName, &p.EmployeeName, &p.OfferingTitle, &p.Amount); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read completion record"})
		}
		items = append(items, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"completions": items})
}

// POST /moderator/completions/:id/approve
func (h *Handler) Approve(c echo.Context) error {
	moderatorID, ok := c.Get("user_id").(string)
	if !ok || moderatorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	completionID := c.Param("id")
	if completionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing completion id in URL"})
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.Bind(&req)

	settlement, err := h.Engine.Approve(context.Background(), moderatorID, completionID, req.Notes)
	if err != nil {
		return writeEngineError(c, err)
	}

	// Best-effort payout email after the settlement committed
	var employeeEmail, requesterID string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT u.email, sr.requester_id
         FROM service_requests sr JOIN users u ON u.id = sr.employee_id
         WHERE sr.id = $1`, settlement.RequestID).Scan(&employeeEmail, &requesterID)
	if employeeEmail != "" {
		_ = alerts.EnqueuePaymentReceived(settlement.RequestID, requesterID,
			settlement.EmployeeID, employeeEmail, settlement.NetPayout)
	}

	// The chat was archived inside the settlement; tell live subscribers.
	var chatID string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT id FROM chats WHERE request_id = $1`, settlement.RequestID).Scan(&chatID)
	if chatID != "" {
		chat.BroadcastArchived(chatID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":        "Completion approved and settled",
		"transaction_id": settlement.TransactionID,
		"amount":         settlement.Amount,
		"commission":     settlement.Commission,
		"net_payout":     settlement.NetPayout,
	})
}

// POST /moderator/completions/:id/reopen
func (h *Handler) Reopen(c echo.Context) error {
	moderatorID, ok := c.Get("user_id").(string)
	if !ok || moderatorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	completionID := c.Param("id")
	if completionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing completion id in URL"})
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.Bind(&req)

	if err := h.Engine.Reopen(context.Background(), moderatorID, completionID, req.Notes); err != nil {
		return writeEngineError(c, err)
	}

	// Best-effort revision email to the employee
	var requestID string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT request_id FROM service_completions WHERE id = $1`, completionID).Scan(&requestID)
	if requestID != "" {
		var requesterID, employeeID, employeeEmail string
		_ = db.Conn.QueryRow(context.Background(),
			`SELECT sr.requester_id, sr.employee_id, u.email
             FROM service_requests sr JOIN users u ON u.id = sr.employee_id
             WHERE sr.id = $1`, requestID).Scan(&requesterID, &employeeID, &employeeEmail)
		if employeeEmail != "" {
			_ = alerts.EnqueueServiceReopened(requestID, requesterID, employeeID, employeeEmail, req.Notes)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Completion reopened for revision"})
}

// Both surfaces speak the same error dialect.
func writeEngineError(c echo.Context, err error) error {
	return marketplace.WriteLifecycleError(c, err)
}
