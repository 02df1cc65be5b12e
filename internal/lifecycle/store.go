package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransitionParams describes a single-record, status-guarded transition.
// From lists the statuses the transition is legal from; the update only wins
// if the stored status is still one of them.
type TransitionParams struct {
	RequestID     string
	From          []Status
	To            Status
	Response      string // employee response, set when StampAccepted
	StampAccepted bool
	Notifications []Notification
}

// ConfirmParams moves a request into progress and opens its chat.
type ConfirmParams struct {
	RequestID     string
	ChatID        string // used if no chat exists yet
	Notifications []Notification
}

// SubmitCompletionParams parks a request for review and records the claim.
type SubmitCompletionParams struct {
	RequestID     string
	CompletionID  string // used if no completion exists yet
	EmployeeNotes string
	Notifications []Notification
}

// ApproveParams finalizes a completion: close both records, archive the chat,
// write the ledger entry, credit the provider and bump their counter.
type ApproveParams struct {
	CompletionID  string
	RequestID     string
	ModeratorID   string
	Notes         string
	TransactionID string
	FromUserID    string
	ToUserID      string
	Amount        int64
	Commission    int64
	NetPayout     int64
	Notifications []Notification
}

// ReopenParams sends a completion back for revision.
type ReopenParams struct {
	CompletionID  string
	RequestID     string
	ModeratorID   string
	Notes         string
	Notifications []Notification
}

// Store is the persistence surface the lifecycle operates against. Every
// method that mutates more than one record is atomic: it commits fully or
// leaves nothing behind.
type Store interface {
	GetOffering(ctx context.Context, id string) (Offering, error)
	HasActiveRequest(ctx context.Context, requesterID, offeringID string) (bool, error)
	CreateRequest(ctx context.Context, req Request) error
	GetRequest(ctx context.Context, id string) (Request, error)
	GetCompletion(ctx context.Context, id string) (Completion, error)

	TransitionRequest(ctx context.Context, p TransitionParams) error
	ConfirmRequest(ctx context.Context, p ConfirmParams) (chatID string, err error)
	SubmitCompletion(ctx context.Context, p SubmitCompletionParams) (completionID string, err error)
	ApproveCompletion(ctx context.Context, p ApproveParams) error
	ReopenCompletion(ctx context.Context, p ReopenParams) error
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) GetOffering(ctx context.Context, id string) (Offering, error) {
	var o Offering
	err := s.pool.QueryRow(ctx,
		`SELECT id, employee_id, game_id, title, price, is_active
         FROM offerings WHERE id = $1`, id,
	).Scan(&o.ID, &o.EmployeeID, &o.GameID, &o.Title, &o.Price, &o.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offering{}, ErrNotFound
		}
		return Offering{}, fmt.Errorf("%w: fetch offering: %v", ErrPersistence, err)
	}
	return o, nil
}

func (s *PgStore) HasActiveRequest(ctx context.Context, requesterID, offeringID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
            SELECT 1 FROM service_requests
            WHERE requester_id = $1 AND offering_id = $2
              AND status NOT IN ('closed', 'cancelled')
        )`, requesterID, offeringID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: active request lookup: %v", ErrPersistence, err)
	}
	return exists, nil
}

func (s *PgStore) CreateRequest(ctx context.Context, req Request) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO service_requests
            (id, offering_id, requester_id, employee_id, details, amount, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.OfferingID, req.RequesterID, req.EmployeeID,
		req.Details, req.Amount, string(req.Status),
	)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PgStore) GetRequest(ctx context.Context, id string) (Request, error) {
	var r Request
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, offering_id, requester_id, employee_id, details, amount, status,
                employee_response, accepted_at, started_at, completed_at, closed_at, created_at
         FROM service_requests WHERE id = $1`, id,
	).Scan(&r.ID, &r.OfferingID, &r.RequesterID, &r.EmployeeID, &r.Details, &r.Amount,
		&status, &r.EmployeeResponse, &r.AcceptedAt, &r.StartedAt, &r.CompletedAt,
		&r.ClosedAt, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("%w: fetch request: %v", ErrPersistence, err)
	}
	r.Status = Status(status)
	return r, nil
}

func (s *PgStore) GetCompletion(ctx context.Context, id string) (Completion, error) {
	var c Completion
	var status string
	var reviewedBy *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, request_id, employee_notes, status, review_notes, reviewed_by,
                submitted_at, reviewed_at
         FROM service_completions WHERE id = $1`, id,
	).Scan(&c.ID, &c.RequestID, &c.EmployeeNotes, &status, &c.ReviewNotes,
		&reviewedBy, &c.SubmittedAt, &c.ReviewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Completion{}, ErrNotFound
		}
		return Completion{}, fmt.Errorf("%w: fetch completion: %v", ErrPersistence, err)
	}
	c.Status = CompletionStatus(status)
	if reviewedBy != nil {
		c.ReviewedBy = *reviewedBy
	}
	return c, nil
}

// TransitionRequest performs the guarded conditional update that gives every
// transition at-most-one-winner semantics. Losing the race surfaces as a
// StateConflictError carrying the status that actually won.
func (s *PgStore) TransitionRequest(ctx context.Context, p TransitionParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE service_requests
         SET status = $1,
             employee_response = CASE WHEN $2 THEN $3 ELSE employee_response END,
             accepted_at = CASE WHEN $2 THEN NOW() ELSE accepted_at END,
             updated_at = NOW()
         WHERE id = $4 AND status = ANY($5)`,
		string(p.To), p.StampAccepted, p.Response, p.RequestID, statusList(p.From),
	)
	if err != nil {
		return fmt.Errorf("%w: transition request: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return s.requestConflict(ctx, p.RequestID, p.From)
	}

	if err := insertNotifications(ctx, tx, p.Notifications); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PgStore) ConfirmRequest(ctx context.Context, p ConfirmParams) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE service_requests
         SET status = 'in_progress', started_at = NOW(), updated_at = NOW()
         WHERE id = $1 AND status = 'employee_accepted'`,
		p.RequestID,
	)
	if err != nil {
		return "", fmt.Errorf("%w: confirm request: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return "", s.requestConflict(ctx, p.RequestID, []Status{StatusEmployeeAccepted})
	}

	// A chat is created exactly once per request. If one already exists
	// (a re-opened request), it is reused and its archived flag is left alone.
	_, err = tx.Exec(ctx,
		`INSERT INTO chats (id, request_id) VALUES ($1, $2)
         ON CONFLICT (request_id) DO NOTHING`,
		p.ChatID, p.RequestID,
	)
	if err != nil {
		return "", fmt.Errorf("%w: create chat: %v", ErrPersistence, err)
	}

	var chatID string
	if err := tx.QueryRow(ctx,
		`SELECT id FROM chats WHERE request_id = $1`, p.RequestID,
	).Scan(&chatID); err != nil {
		return "", fmt.Errorf("%w: fetch chat: %v", ErrPersistence, err)
	}

	if err := insertNotifications(ctx, tx, p.Notifications); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return chatID, nil
}

func (s *PgStore) SubmitCompletion(ctx context.Context, p SubmitCompletionParams) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE service_requests
         SET status = 'pending_completion', completed_at = NOW(), updated_at = NOW()
         WHERE id = $1 AND status = 'in_progress'`,
		p.RequestID,
	)
	if err != nil {
		return "", fmt.Errorf("%w: submit completion: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return "", s.requestConflict(ctx, p.RequestID, []Status{StatusInProgress})
	}

	// One completion per request: a revision round flips the existing record
	// back to pending_review instead of creating a second one.
	var completionID string
	err = tx.QueryRow(ctx,
		`INSERT INTO service_completions (id, request_id, employee_notes, status)
         VALUES ($1, $2, $3, 'pending_review')
         ON CONFLICT (request_id) DO UPDATE
             SET status = 'pending_review',
                 employee_notes = EXCLUDED.employee_notes,
                 submitted_at = NOW()
         RETURNING id`,
		p.CompletionID, p.RequestID, p.EmployeeNotes,
	).Scan(&completionID)
	if err != nil {
		return "", fmt.Errorf("%w: upsert completion: %v", ErrPersistence, err)
	}

	if err := insertNotifications(ctx, tx, p.Notifications); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return completionID, nil
}

func (s *PgStore) ApproveCompletion(ctx context.Context, p ApproveParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE service_completions
         SET status = 'closed', review_notes = $1, reviewed_by = $2,
             reviewed_at = NOW(), closed_at = NOW()
         WHERE id = $3 AND status = 'pending_review'`,
		p.Notes, p.ModeratorID, p.CompletionID,
	)
	if err != nil {
		return fmt.Errorf("%w: close completion: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return s.completionConflict(ctx, p.CompletionID)
	}

	res, err = tx.Exec(ctx,
		`UPDATE service_requests
         SET status = 'closed', closed_at = NOW(), updated_at = NOW()
         WHERE id = $1 AND status = 'pending_completion'`,
		p.RequestID,
	)
	if err != nil {
		return fmt.Errorf("%w: close request: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return s.requestConflict(ctx, p.RequestID, []Status{StatusPendingCompletion})
	}

	_, err = tx.Exec(ctx,
		`UPDATE chats SET is_archived = TRUE, archived_at = NOW()
         WHERE request_id = $1 AND is_archived = FALSE`,
		p.RequestID,
	)
	if err != nil {
		return fmt.Errorf("%w: archive chat: %v", ErrPersistence, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions
            (id, request_id, from_user_id, to_user_id, amount, commission, net_payout, type)
         VALUES ($1, $2, $3, $4, $5, $6, $7, 'service_payment')`,
		p.TransactionID, p.RequestID, p.FromUserID, p.ToUserID,
		p.Amount, p.Commission, p.NetPayout,
	)
	if err != nil {
		return fmt.Errorf("%w: record transaction: %v", ErrPersistence, err)
	}

	// Atomic increment so concurrent credits to the same provider never lose
	// a write.
	res, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`,
		p.NetPayout, p.ToUserID,
	)
	if err != nil {
		return fmt.Errorf("%w: credit wallet: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: credit wallet: no wallet for user %s", ErrPersistence, p.ToUserID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET services_completed = services_completed + 1 WHERE id = $1`,
		p.ToUserID,
	)
	if err != nil {
		return fmt.Errorf("%w: bump completed counter: %v", ErrPersistence, err)
	}

	if err := insertNotifications(ctx, tx, p.Notifications); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PgStore) ReopenCompletion(ctx context.Context, p ReopenParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE service_completions
         SET status = 'needs_revision', review_notes = $1, reviewed_by = $2, reviewed_at = NOW()
         WHERE id = $3 AND status = 'pending_review'`,
		p.Notes, p.ModeratorID, p.CompletionID,
	)
	if err != nil {
		return fmt.Errorf("%w: reopen completion: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return s.completionConflict(ctx, p.CompletionID)
	}

	res, err = tx.Exec(ctx,
		`UPDATE service_requests
         SET status = 'in_progress', completed_at = NULL, updated_at = NOW()
         WHERE id = $1 AND status = 'pending_completion'`,
		p.RequestID,
	)
	if err != nil {
		return fmt.Errorf("%w: revert request: %v", ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return s.requestConflict(ctx, p.RequestID, []Status{StatusPendingCompletion})
	}

	if err := insertNotifications(ctx, tx, p.Notifications); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// requestConflict distinguishes "no such request" from "somebody else won".
func (s *PgStore) requestConflict(ctx context.Context, requestID string, expected []Status) error {
	var current string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM service_requests WHERE id = $1`, requestID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: conflict lookup: %v", ErrPersistence, err)
	}
	return &StateConflictError{Current: current, Expected: joinStatuses(expected)}
}

func (s *PgStore) completionConflict(ctx context.Context, completionID string) error {
	var current string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM service_completions WHERE id = $1`, completionID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: conflict lookup: %v", ErrPersistence, err)
	}
	return &StateConflictError{Current: current, Expected: string(CompletionPendingReview)}
}

func insertNotifications(ctx context.Context, tx pgx.Tx, notes []Notification) error {
	for _, n := range notes {
		var ref *string
		if n.Reference != "" {
			ref = &n.Reference
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO notifications (user_id, type, title, body, reference)
             VALUES ($1, $2, $3, $4, $5)`,
			n.UserID, n.Type, n.Title, n.Body, ref,
		)
		if err != nil {
			return fmt.Errorf("%w: enqueue notification: %v", ErrPersistence, err)
		}
	}
	return nil
}

func statusList(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func joinStatuses(statuses []Status) string {
	return strings.Join(statusList(statuses), "|")
}
