package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

const testModerator = "55555555-5555-5555-5555-555555555555"

func tenPercent() decimal.Decimal {
	return decimal.NewFromFloat(0.10)
}

// Walks a request all the way to pending review and returns the completion id.
func submitForReview(t *testing.T, store *fakeStore, svc *Service, price int64) (requestID, completionID string) {
	t.Helper()
	ctx := context.Background()
	seedOffering(store, price)

	req, err := svc.Submit(ctx, testBuyer, testOffering, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := svc.Accept(ctx, testEmployee, req.ID, ""); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := svc.Confirm(ctx, testBuyer, req.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	compID, err := svc.MarkComplete(ctx, testEmployee, req.ID, "done")
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	return req.ID, compID
}

func TestSplitInvariants(t *testing.T) {
	engine := NewSettlementEngine(newFakeStore(), tenPercent())

	cases := []struct {
		amount, commission, net int64
	}{
		{10000, 1000, 9000}, // 100.00 -> 10.00 / 90.00
		{999, 100, 899},     // 9.99 -> 1.00 after rounding
		{5, 1, 4},           // 0.05 -> round half up
		{1, 0, 1},
		{0, 0, 0},
	}
	for _, c := range cases {
		commission, net := engine.Split(c.amount)
		if commission != c.commission || net != c.net {
			t.Fatalf("Split(%d) = (%d, %d), want (%d, %d)",
				c.amount, commission, net, c.commission, c.net)
		}
		if commission+net != c.amount {
			t.Fatalf("Split(%d) loses cents: %d + %d", c.amount, commission, net)
		}
	}
}

func TestApprovePaysAndClosesEverything(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	engine := NewSettlementEngine(store, tenPercent())
	ctx := context.Background()

	reqID, compID := submitForReview(t, store, svc, 10000)

	settlement, err := engine.Approve(ctx, testModerator, compID, "verified in chat")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if settlement.Amount != 10000 || settlement.Commission != 1000 || settlement.NetPayout != 9000 {
		t.Fatalf("settlement = %+v, want 10000/1000/9000", settlement)
	}

	req, _ := store.GetRequest(ctx, reqID)
	if req.Status != StatusClosed {
		t.Fatalf("request status = %s, want %s", req.Status, StatusClosed)
	}
	comp, _ := store.GetCompletion(ctx, compID)
	if comp.Status != CompletionClosed {
		t.Fatalf("completion status = %s, want %s", comp.Status, CompletionClosed)
	}
	if comp.ReviewedBy != testModerator {
		t.Fatalf("reviewed_by = %s, want %s", comp.ReviewedBy, testModerator)
	}
	if !store.archivedChats[reqID] {
		t.Fatal("chat not archived")
	}
	if got := store.wallets[testEmployee]; got != 9000 {
		t.Fatalf("wallet balance = %d, want 9000", got)
	}
	if got := store.completedBy[testEmployee]; got != 1 {
		t.Fatalf("services_completed = %d, want 1", got)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.transactions))
	}
	tx := store.transactions[0]
	if tx.FromUserID != testBuyer || tx.ToUserID != testEmployee {
		t.Fatalf("transaction parties = %s -> %s", tx.FromUserID, tx.ToUserID)
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	engine := NewSettlementEngine(store, tenPercent())
	ctx := context.Background()

	_, compID := submitForReview(t, store, svc, 10000)

	if _, err := engine.Approve(ctx, testModerator, compID, ""); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	if _, err := engine.Approve(ctx, testModerator, compID, ""); !IsStateConflict(err) {
		t.Fatalf("second Approve err = %v, want state conflict", err)
	}
	// Exactly one payment went out.
	if got := store.wallets[testEmployee]; got != 9000 {
		t.Fatalf("wallet balance = %d, want 9000", got)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.transactions))
	}
}

func TestReopenRequiresNotes(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	engine := NewSettlementEngine(store, tenPercent())
	ctx := context.Background()

	_, compID := submitForReview(t, store, svc, 10000)

	if err := engine.Reopen(ctx, testModerator, compID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Reopen without notes err = %v, want ErrInvalidInput", err)
	}
}

func TestReopenSendsWorkBack(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	engine := NewSettlementEngine(store, tenPercent())
	ctx := context.Background()

	reqID, compID := submitForReview(t, store, svc, 10000)

	if err := engine.Reopen(ctx, testModerator, compID, "missing final screenshot"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}

	req, _ := store.GetRequest(ctx, reqID)
	if req.Status != StatusInProgress {
		t.Fatalf("request status = %s, want %s", req.Status, StatusInProgress)
	}
	if req.CompletedAt != nil {
		t.Fatal("completed_at not cleared on reopen")
	}
	comp, _ := store.GetCompletion(ctx, compID)
	if comp.Status != CompletionNeedsRevision {
		t.Fatalf("completion status = %s, want %s", comp.Status, CompletionNeedsRevision)
	}
	if comp.ReviewNotes != "missing final screenshot" {
		t.Fatalf("review notes = %q", comp.ReviewNotes)
	}

	// No money moved.
	if got := store.wallets[testEmployee]; got != 0 {
		t.Fatalf("wallet balance = %d, want 0", got)
	}

	// The revision round reuses the same completion record.
	compID2, err := svc.MarkComplete(ctx, testEmployee, reqID, "fixed")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if compID2 != compID {
		t.Fatalf("resubmit created a new completion: %s != %s", compID2, compID)
	}
	comp, _ = store.GetCompletion(ctx, compID)
	if comp.Status != CompletionPendingReview {
		t.Fatalf("completion status = %s, want %s", comp.Status, CompletionPendingReview)
	}

	// And the fixed work can now settle.
	if _, err := engine.Approve(ctx, testModerator, compID, ""); err != nil {
		t.Fatalf("Approve after revision: %v", err)
	}
	if got := store.wallets[testEmployee]; got != 9000 {
		t.Fatalf("wallet balance = %d, want 9000", got)
	}
}

func TestNotificationsFollowTheLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	engine := NewSettlementEngine(store, tenPercent())
	ctx := context.Background()

	_, compID := submitForReview(t, store, svc, 10000)
	if _, err := engine.Approve(ctx, testModerator, compID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	want := []string{
		NoticeRequestAccepted,
		NoticeServiceStarted,
		NoticeCompletionSubmitted,
		NoticePaymentReceived,
		NoticeServiceCompleted,
	}
	got := store.noticeTypes()
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
