package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/alerts"
	"github.com/boosthive/boosthive/internal/db"
	"github.com/boosthive/boosthive/internal/lifecycle"
)

// RequestHandler exposes the request lifecycle over HTTP. State rules live in
// the lifecycle service; this layer does binding, auth context and status
// code mapping.
type RequestHandler struct {
	Service *lifecycle.Service
}

func NewRequestHandler(svc *lifecycle.Service) *RequestHandler {
	return &RequestHandler{Service: svc}
}

// WriteLifecycleError maps the service error taxonomy onto HTTP statuses.
func WriteLifecycleError(c echo.Context, err error) error {
	var conflict *lifecycle.StateConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":           "the record is not in the required state",
			"current_status":  conflict.Current,
			"expected_status": conflict.Expected,
		})
	case errors.Is(err, lifecycle.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, lifecycle.ErrNotAllowed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you are not a party to this request"})
	case errors.Is(err, lifecycle.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// =========================
// Create - requester places a service request
// =========================
func (h *RequestHandler) Create(c echo.Context) error {
	requesterID, ok := c.Get("user_id").(string)
	if !ok || requesterID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		OfferingID string `json:"offering_id"`
		Details    string `json:"details"`
	}
	if err := c.Bind(&req); err != nil || req.OfferingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offering_id"})
	}

	created, err := h.Service.Submit(context.Background(), requesterID, req.OfferingID, req.Details)
	if err != nil {
		return WriteLifecycleError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"request_id": created.ID,
		"status":     string(created.Status),
		"amount":     created.Amount,
		"message":    "Request placed. Awaiting employee acceptance.",
	})
}

// =========================
// Accept - employee takes on a pending request
// =========================
func (h *RequestHandler) Accept(c echo.Context) error {
	employeeID, ok := c.Get("user_id").(string)
	if !ok || employeeID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id in URL"})
	}

	var req struct {
		Response string `json:"response"`
	}
	_ = c.Bind(&req)

	if err := h.Service.Accept(context.Background(), employeeID, requestID, req.Response); err != nil {
		return WriteLifecycleError(c, err)
	}

	h.emailRequester(requestID, alerts.EnqueueRequestAccepted)

	return c.JSON(http.StatusOK, echo.Map{"message": "Request accepted"})
}

// =========================
// Confirm - requester green-lights the accepted request
// =========================
func (h *RequestHandler) Confirm(c echo.Context) error {
	requesterID, ok := c.Get("user_id").(string)
	if !ok || requesterID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id in URL"})
	}

	chatID, err := h.Service.Confirm(context.Background(), requesterID, requestID)
	if err != nil {
		return WriteLifecycleError(c, err)
	}

	h.emailEmployee(requestID, alerts.EnqueueServiceStarted)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Service started",
		"chat_id": chatID,
	})
}

// =========================
// Reject - employee declines before work starts
// =========================
func (h *RequestHandler) Reject(c echo.Context) error {
	employeeID, ok := c.Get("user_id").(string)
	if !ok || employeeID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id in URL"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)

	if err := h.Service.Reject(context.Background(), employeeID, requestID, req.Reason); err != nil {
		return WriteLifecycleError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Request declined"})
}

// =========================
// Cancel - requester withdraws before work starts
// =========================
func (h *RequestHandler) Cancel(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id in URL"})
	}

	if err := h.Service.Cancel(context.Background(), userID, requestID); err != nil {
		return WriteLifecycleError(c, err)
	}

	h.emailCounterparty(requestID, userID, alerts.EnqueueRequestCancelled)

	return c.JSON(http.StatusOK, echo.Map{"message": "Request cancelled"})
}

// =========================
// Complete - employee claims the work is done
// =========================
func (h *RequestHandler) Complete(c echo.Context) error {
	employeeID, ok := c.Get("user_id").(string)
	if !ok || employeeID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id in URL"})
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.Bind(&req)

	completionID, err := h.Service.MarkComplete(context.Background(), employeeID, requestID, req.Notes)
	if err != nil {
		return WriteLifecycleError(c, err)
	}

	h.emailRequester(requestID, alerts.EnqueueCompletionSubmitted)

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Completion submitted for review",
		"completion_id": completionID,
	})
}

// =========================
// ListMine - all requests the user is party to
// =========================
func (h *RequestHandler) ListMine(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, offering_id, requester_id, employee_id, details, amount, status,
                employee_response, accepted_at, started_at, completed_at, closed_at, created_at
         FROM service_requests
         WHERE requester_id = $1 OR employee_id = $1
         ORDER BY created_at DESC`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch requests"})
	}
	defer rows.Close()

	requests := []RequestView{}
	for rows.Next() {
		var r RequestView
		if err := rows.Scan(&r.ID, &r.OfferingID, &r.RequesterID, &r.EmployeeID, &r.Details,
			&r.Amount, &r.Status, &r.EmployeeResponse, &r.AcceptedAt, &r.StartedAt,
			&r.CompletedAt, &r.ClosedAt, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		requests = append(requests, r)
	}

	return c.JSON(http.StatusOK, echo.Map{"requests": requests})
}

// =========================
// Get - a single request, parties and moderators only
// =========================
func (h *RequestHandler) Get(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	requestID := c.Param("id")
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing request id in URL"})
	}

	var r RequestView
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, offering_id, requester_id, employee_id, details, amount, status,
                employee_response, accepted_at, started_at, completed_at, closed_at, created_at
         FROM service_requests WHERE id = $1`, requestID,
	).Scan(&r.ID, &r.OfferingID, &r.RequesterID, &r.EmployeeID, &r.Details,
		&r.Amount, &r.Status, &r.EmployeeResponse, &r.AcceptedAt, &r.StartedAt,
		&r.CompletedAt, &r.ClosedAt, &r.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}

	if userID != r.RequesterID && userID != r.EmployeeID && role != "moderator" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	return c.JSON(http.StatusOK, r)
}

type serviceEventEnqueue func(requestID, requesterID, employeeID, email string, amount int64) error

// Best-effort email fan-out after the transition committed. A failed enqueue
// never fails the API call; the in-app notification was already written.
func (h *RequestHandler) emailRequester(requestID string, enqueue serviceEventEnqueue) {
	h.emailParty(requestID, true, enqueue)
}

func (h *RequestHandler) emailEmployee(requestID string, enqueue serviceEventEnqueue) {
	h.emailParty(requestID, false, enqueue)
}

// emailCounterparty mails whichever party did not perform the action.
func (h *RequestHandler) emailCounterparty(requestID, actorID string, enqueue serviceEventEnqueue) {
	var requesterID, employeeID string
	var amount int64
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT requester_id, employee_id, amount FROM service_requests WHERE id = $1`,
		requestID).Scan(&requesterID, &employeeID, &amount)
	target := employeeID
	if actorID == employeeID {
		target = requesterID
	}
	if target == "" {
		return
	}

	var email string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, target).Scan(&email)
	if email != "" {
		_ = enqueue(requestID, requesterID, employeeID, email, amount)
	}
}

func (h *RequestHandler) emailParty(requestID string, toRequester bool, enqueue serviceEventEnqueue) {
	var requesterID, employeeID string
	var amount int64
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT requester_id, employee_id, amount FROM service_requests WHERE id = $1`,
		requestID).Scan(&requesterID, &employeeID, &amount)
	target := employeeID
	if toRequester {
		target = requesterID
	}
	if target == "" {
		return
	}

	var email string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, target).Scan(&email)
	if email != "" {
		_ = enqueue(requestID, requesterID, employeeID, email, amount)
	}
}
