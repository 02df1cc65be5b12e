package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settlement is the outcome of an approved completion.
type Settlement struct {
	TransactionID string
	RequestID     string
	EmployeeID    string
	Amount        int64
	Commission    int64
	NetPayout     int64
}

// SettlementEngine reviews submitted completions. Approval pays the provider
// their share and closes everything in one transaction; reopening sends the
// work back with the moderator's notes attached.
type SettlementEngine struct {
	store Store
	rate  decimal.Decimal
}

func NewSettlementEngine(store Store, rate decimal.Decimal) *SettlementEngine {
	return &SettlementEngine{store: store, rate: rate}
}

// Split divides an amount in cents between the platform and the provider.
// The commission is rounded once and the payout is the remainder, so the two
// always sum back to the original amount.
func (e *SettlementEngine) Split(amount int64) (commission, netPayout int64) {
	commission = decimal.NewFromInt(amount).Mul(e.rate).Round(0).IntPart()
	return commission, amount - commission
}

// Approve settles a completion: the provider is credited their net payout,
// the commission is retained, and the request, completion and chat all close.
func (e *SettlementEngine) Approve(ctx context.Context, moderatorID, completionID, notes string) (Settlement, error) {
	comp, err := e.store.GetCompletion(ctx, completionID)
	if err != nil {
		return Settlement{}, err
	}
	if comp.Status != CompletionPendingReview {
		return Settlement{}, &StateConflictError{
			Current:  string(comp.Status),
			Expected: string(CompletionPendingReview),
		}
	}

	req, err := e.store.GetRequest(ctx, comp.RequestID)
	if err != nil {
		return Settlement{}, err
	}

	commission, netPayout := e.Split(req.Amount)
	settlement := Settlement{
		TransactionID: uuid.NewString(),
		RequestID:     req.ID,
		EmployeeID:    req.EmployeeID,
		Amount:        req.Amount,
		Commission:    commission,
		NetPayout:     netPayout,
	}

	err = e.store.ApproveCompletion(ctx, ApproveParams{
		CompletionID:  completionID,
		RequestID:     req.ID,
		ModeratorID:   moderatorID,
		Notes:         strings.TrimSpace(notes),
		TransactionID: settlement.TransactionID,
		FromUserID:    req.RequesterID,
		ToUserID:      req.EmployeeID,
		Amount:        req.Amount,
		Commission:    commission,
		NetPayout:     netPayout,
		Notifications: []Notification{
			{
				UserID:    req.EmployeeID,
				Type:      NoticePaymentReceived,
				Title:     "Payment received",
				Body:      fmt.Sprintf("You were paid %s for a completed service.", formatCents(netPayout)),
				Reference: req.ID,
			},
			{
				UserID:    req.RequesterID,
				Type:      NoticeServiceCompleted,
				Title:     "Service completed",
				Body:      "Your service request was reviewed and closed.",
				Reference: req.ID,
			},
		},
	})
	if err != nil {
		return Settlement{}, err
	}
	return settlement, nil
}

// Reopen rejects a completion claim and puts the request back in progress.
// Notes are mandatory so the employee knows what to fix.
func (e *SettlementEngine) Reopen(ctx context.Context, moderatorID, completionID, notes string) error {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return fmt.Errorf("%w: revision notes are required", ErrInvalidInput)
	}

	comp, err := e.store.GetCompletion(ctx, completionID)
	if err != nil {
		return err
	}
	if comp.Status != CompletionPendingReview {
		return &StateConflictError{
			Current:  string(comp.Status),
			Expected: string(CompletionPendingReview),
		}
	}

	req, err := e.store.GetRequest(ctx, comp.RequestID)
	if err != nil {
		return err
	}

	return e.store.ReopenCompletion(ctx, ReopenParams{
		CompletionID: completionID,
		RequestID:    req.ID,
		ModeratorID:  moderatorID,
		Notes:        notes,
		Notifications: []Notification{
			{
				UserID:    req.EmployeeID,
				Type:      NoticeServiceReopened,
				Title:     "Revision requested",
				Body:      fmt.Sprintf("A moderator reopened your service: %s", notes),
				Reference: req.ID,
			},
			{
				UserID:    req.RequesterID,
				Type:      NoticeServiceReopened,
				Title:     "Service reopened",
				Body:      "A moderator sent the service back for revision.",
				Reference: req.ID,
			},
		},
	})
}

func formatCents(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
