package lifecycle

import (
	"context"
	"errors"
	"testing"
)

const (
	testBuyer    = "11111111-1111-1111-1111-111111111111"
	testEmployee = "22222222-2222-2222-2222-222222222222"
	testOffering = "33333333-3333-3333-3333-333333333333"
)

func seedOffering(store *fakeStore, price int64) {
	store.offerings[testOffering] = Offering{
		ID:         testOffering,
		EmployeeID: testEmployee,
		GameID:     "44444444-4444-4444-4444-444444444444",
		Title:      "Rank boost",
		Price:      price,
		Active:     true,
	}
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)

	req, err := svc.Submit(context.Background(), testBuyer, testOffering, "  evenings only  ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("status = %s, want %s", req.Status, StatusPending)
	}
	if req.Amount != 10000 {
		t.Fatalf("amount = %d, want price snapshot 10000", req.Amount)
	}
	if req.EmployeeID != testEmployee {
		t.Fatalf("employee = %s, want %s", req.EmployeeID, testEmployee)
	}
	if req.Details != "evenings only" {
		t.Fatalf("details = %q, want trimmed", req.Details)
	}
}

func TestSubmitRejectsOwnOffering(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)

	_, err := svc.Submit(context.Background(), testEmployee, testOffering, "")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
}

func TestSubmitRejectsInactiveOffering(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	o := store.offerings[testOffering]
	o.Active = false
	store.offerings[testOffering] = o
	svc := NewService(store)

	_, err := svc.Submit(context.Background(), testBuyer, testOffering, "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSubmitRejectsDuplicateActiveRequest(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, testBuyer, testOffering, ""); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := svc.Submit(ctx, testBuyer, testOffering, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("second Submit err = %v, want ErrInvalidInput", err)
	}
}

func TestAcceptOnlyByAssignedEmployee(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, err := svc.Submit(ctx, testBuyer, testOffering, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := svc.Accept(ctx, testBuyer, req.ID, "sure"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("wrong-user Accept err = %v, want ErrNotAllowed", err)
	}
	if err := svc.Accept(ctx, testEmployee, req.ID, "sure"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusEmployeeAccepted {
		t.Fatalf("status = %s, want %s", got.Status, StatusEmployeeAccepted)
	}
	if got.EmployeeResponse != "sure" {
		t.Fatalf("response = %q, want %q", got.EmployeeResponse, "sure")
	}
	if got.AcceptedAt == nil {
		t.Fatal("accepted_at not stamped")
	}
}

func TestAcceptTwiceLeavesStateUnchanged(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	if err := svc.Accept(ctx, testEmployee, req.ID, "first"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	err := svc.Accept(ctx, testEmployee, req.ID, "second")
	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want StateConflictError", err)
	}
	if conflict.Current != string(StatusEmployeeAccepted) {
		t.Fatalf("conflict current = %s, want %s", conflict.Current, StatusEmployeeAccepted)
	}

	got, _ := store.GetRequest(ctx, req.ID)
	if got.EmployeeResponse != "first" {
		t.Fatalf("losing accept overwrote response: %q", got.EmployeeResponse)
	}
}

func TestConfirmRequiresAcceptedState(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	if _, err := svc.Confirm(ctx, testBuyer, req.ID); !IsStateConflict(err) {
		t.Fatalf("Confirm on pending err = %v, want state conflict", err)
	}

	if err := svc.Accept(ctx, testEmployee, req.ID, ""); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	chatID, err := svc.Confirm(ctx, testBuyer, req.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if chatID == "" {
		t.Fatal("Confirm returned no chat")
	}

	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusInProgress {
		t.Fatalf("status = %s, want %s", got.Status, StatusInProgress)
	}
	if got.StartedAt == nil {
		t.Fatal("started_at not stamped")
	}
}

func TestCancelAndDoubleCancel(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	if err := svc.Cancel(ctx, testBuyer, req.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want %s", got.Status, StatusCancelled)
	}

	// Cancelling again conflicts cleanly instead of double-applying.
	if err := svc.Cancel(ctx, testBuyer, req.ID); !IsStateConflict(err) {
		t.Fatalf("double Cancel err = %v, want state conflict", err)
	}
}

func TestCancelWhileInProgress(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	svc.Accept(ctx, testEmployee, req.ID, "")
	svc.Confirm(ctx, testBuyer, req.ID)

	if err := svc.Cancel(ctx, testBuyer, req.ID); err != nil {
		t.Fatalf("Cancel in progress: %v", err)
	}
	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want %s", got.Status, StatusCancelled)
	}
}

func TestEmployeeCanCancel(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	if err := svc.Cancel(ctx, testEmployee, req.ID); err != nil {
		t.Fatalf("employee Cancel: %v", err)
	}

	// The requester, not the acting employee, gets the notice.
	last := store.notifications[len(store.notifications)-1]
	if last.Type != NoticeRequestCancelled || last.UserID != testBuyer {
		t.Fatalf("notice = %s to %s, want %s to %s",
			last.Type, last.UserID, NoticeRequestCancelled, testBuyer)
	}
}

func TestCancelByOutsiderRefused(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	err := svc.Cancel(ctx, "3f1c9d44-0000-4000-8000-000000000099", req.ID)
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("outsider Cancel err = %v, want %v", err, ErrNotAllowed)
	}
	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusPending {
		t.Fatalf("status = %s, want %s", got.Status, StatusPending)
	}
}

func TestRejectFromPendingAndAccepted(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	svc.Accept(ctx, testEmployee, req.ID, "")
	if err := svc.Reject(ctx, testEmployee, req.ID, "overbooked"); err != nil {
		t.Fatalf("Reject after accept: %v", err)
	}
	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want %s", got.Status, StatusCancelled)
	}
}

func TestMarkCompleteParksForReview(t *testing.T) {
	store := newFakeStore()
	seedOffering(store, 10000)
	svc := NewService(store)
	ctx := context.Background()

	req, _ := svc.Submit(ctx, testBuyer, testOffering, "")
	svc.Accept(ctx, testEmployee, req.ID, "")
	svc.Confirm(ctx, testBuyer, req.ID)

	compID, err := svc.MarkComplete(ctx, testEmployee, req.ID, "done, screenshots in chat")
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}

	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != StatusPendingCompletion {
		t.Fatalf("status = %s, want %s", got.Status, StatusPendingCompletion)
	}
	comp, err := store.GetCompletion(ctx, compID)
	if err != nil {
		t.Fatalf("GetCompletion: %v", err)
	}
	if comp.Status != CompletionPendingReview {
		t.Fatalf("completion status = %s, want %s", comp.Status, CompletionPendingReview)
	}

	// Claiming again without a reopen conflicts.
	if _, err := svc.MarkComplete(ctx, testEmployee, req.ID, "again"); !IsStateConflict(err) {
		t.Fatalf("second MarkComplete err = %v, want state conflict", err)
	}
}

func TestUnknownRequestIsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	err := svc.Accept(context.Background(), testEmployee, "99999999-9999-9999-9999-999999999999", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
