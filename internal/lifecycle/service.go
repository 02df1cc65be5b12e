package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Service drives a request through its lifecycle. Authorization is checked
// here; the winner of any concurrent transition is decided by the store's
// guarded updates.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Submit places a new request against an offering. The requester may not
// order their own offering and may hold at most one live request per
// offering at a time.
func (s *Service) Submit(ctx context.Context, requesterID, offeringID, details string) (Request, error) {
	if requesterID == "" || offeringID == "" {
		return Request{}, fmt.Errorf("%w: requester and offering are required", ErrInvalidInput)
	}

	offering, err := s.store.GetOffering(ctx, offeringID)
	if err != nil {
		return Request{}, err
	}
	if !offering.Active {
		return Request{}, fmt.Errorf("%w: offering is not available", ErrInvalidInput)
	}
	if offering.EmployeeID == requesterID {
		return Request{}, fmt.Errorf("%w: cannot order your own offering", ErrNotAllowed)
	}

	exists, err := s.store.HasActiveRequest(ctx, requesterID, offeringID)
	if err != nil {
		return Request{}, err
	}
	if exists {
		return Request{}, fmt.Errorf("%w: an active request for this offering already exists", ErrInvalidInput)
	}

	req := Request{
		ID:          uuid.NewString(),
		OfferingID:  offering.ID,
		RequesterID: requesterID,
		EmployeeID:  offering.EmployeeID,
		Details:     strings.TrimSpace(details),
		Amount:      offering.Price,
		Status:      StatusPending,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Accept is the employee taking on a pending request, optionally with a
// message back to the requester.
func (s *Service) Accept(ctx context.Context, employeeID, requestID, response string) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.EmployeeID != employeeID {
		return fmt.Errorf("%w: request belongs to another employee", ErrNotAllowed)
	}

	return s.store.TransitionRequest(ctx, TransitionParams{
		RequestID:     requestID,
		From:          []Status{StatusPending},
		To:            StatusEmployeeAccepted,
		Response:      strings.TrimSpace(response),
		StampAccepted: true,
		Notifications: []Notification{{
			UserID:    req.RequesterID,
			Type:      NoticeRequestAccepted,
			Title:     "Request accepted",
			Body:      "Your service request was accepted. Confirm to get started.",
			Reference: requestID,
		}},
	})
}

// Confirm is the requester green-lighting an accepted request. Work begins
// and the request gets its chat.
func (s *Service) Confirm(ctx context.Context, requesterID, requestID string) (chatID string, err error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.RequesterID != requesterID {
		return "", fmt.Errorf("%w: request belongs to another user", ErrNotAllowed)
	}

	return s.store.ConfirmRequest(ctx, ConfirmParams{
		RequestID: requestID,
		ChatID:    uuid.NewString(),
		Notifications: []Notification{{
			UserID:    req.EmployeeID,
			Type:      NoticeServiceStarted,
			Title:     "Service started",
			Body:      "The requester confirmed. The service is now in progress.",
			Reference: requestID,
		}},
	})
}

// Reject lets the employee decline a request that has not started yet.
func (s *Service) Reject(ctx context.Context, employeeID, requestID, reason string) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.EmployeeID != employeeID {
		return fmt.Errorf("%w: request belongs to another employee", ErrNotAllowed)
	}

	return s.store.TransitionRequest(ctx, TransitionParams{
		RequestID:     requestID,
		From:          []Status{StatusPending, StatusEmployeeAccepted},
		To:            StatusCancelled,
		Response:      strings.TrimSpace(reason),
		StampAccepted: false,
		Notifications: []Notification{{
			UserID:    req.RequesterID,
			Type:      NoticeRequestRejected,
			Title:     "Request declined",
			Body:      "The employee declined your service request.",
			Reference: requestID,
		}},
	})
}

// Cancel lets either party abandon the engagement, including work already in
// progress. Requests parked for review or settled stay out of reach.
func (s *Service) Cancel(ctx context.Context, actorID, requestID string) error {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if actorID != req.RequesterID && actorID != req.EmployeeID {
		return fmt.Errorf("%w: caller is not a party to this request", ErrNotAllowed)
	}

	counterparty := req.EmployeeID
	if actorID == req.EmployeeID {
		counterparty = req.RequesterID
	}

	return s.store.TransitionRequest(ctx, TransitionParams{
		RequestID: requestID,
		From:      []Status{StatusPending, StatusEmployeeAccepted, StatusInProgress},
		To:        StatusCancelled,
		Notifications: []Notification{{
			UserID:    counterparty,
			Type:      NoticeRequestCancelled,
			Title:     "Request cancelled",
			Body:      "The other party cancelled the service request.",
			Reference: requestID,
		}},
	})
}

// MarkComplete is the employee claiming the work is done. The request parks
// in pending_completion until a moderator reviews the claim.
func (s *Service) MarkComplete(ctx context.Context, employeeID, requestID, notes string) (completionID string, err error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.EmployeeID != employeeID {
		return "", fmt.Errorf("%w: request belongs to another employee", ErrNotAllowed)
	}

	return s.store.SubmitCompletion(ctx, SubmitCompletionParams{
		RequestID:     requestID,
		CompletionID:  uuid.NewString(),
		EmployeeNotes: strings.TrimSpace(notes),
		Notifications: []Notification{{
			UserID:    req.RequesterID,
			Type:      NoticeCompletionSubmitted,
			Title:     "Completion submitted",
			Body:      "The employee marked your service complete. A moderator will review it.",
			Reference: requestID,
		}},
	})
}
