package lifecycle

import (
	"context"
	"strings"
	"sync"
	"time"
)

// fakeStore mirrors the guarded-update semantics of PgStore in memory so the
// service and settlement tests exercise real conflict behavior.
type fakeStore struct {
	mu            sync.Mutex
	offerings     map[string]Offering
	requests      map[string]Request
	completions   map[string]Completion
	wallets       map[string]int64
	completedBy   map[string]int
	chatsByReq    map[string]string
	archivedChats map[string]bool
	transactions  []ApproveParams
	notifications []Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offerings:     make(map[string]Offering),
		requests:      make(map[string]Request),
		completions:   make(map[string]Completion),
		wallets:       make(map[string]int64),
		completedBy:   make(map[string]int),
		chatsByReq:    make(map[string]string),
		archivedChats: make(map[string]bool),
	}
}

func (f *fakeStore) GetOffering(_ context.Context, id string) (Offering, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offerings[id]
	if !ok {
		return Offering{}, ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) HasActiveRequest(_ context.Context, requesterID, offeringID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.RequesterID == requesterID && r.OfferingID == offeringID && !r.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, req Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.CreatedAt = time.Now()
	f.requests[req.ID] = req
	return nil
}

func (f *fakeStore) GetRequest(_ context.Context, id string) (Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) GetCompletion(_ context.Context, id string) (Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.completions[id]
	if !ok {
		return Completion{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) TransitionRequest(_ context.Context, p TransitionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[p.RequestID]
	if !ok {
		return ErrNotFound
	}
	if !statusIn(r.Status, p.From) {
		return &StateConflictError{Current: string(r.Status), Expected: joinStatuses(p.From)}
	}
	r.Status = p.To
	if p.StampAccepted {
		r.EmployeeResponse = p.Response
		now := time.Now()
		r.AcceptedAt = &now
	}
	f.requests[p.RequestID] = r
	f.notifications = append(f.notifications, p.Notifications...)
	return nil
}

func (f *fakeStore) ConfirmRequest(_ context.Context, p ConfirmParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[p.RequestID]
	if !ok {
		return "", ErrNotFound
	}
	if r.Status != StatusEmployeeAccepted {
		return "", &StateConflictError{Current: string(r.Status), Expected: string(StatusEmployeeAccepted)}
	}
	r.Status = StatusInProgress
	now := time.Now()
	r.StartedAt = &now
	f.requests[p.RequestID] = r
	if _, exists := f.chatsByReq[p.RequestID]; !exists {
		f.chatsByReq[p.RequestID] = p.ChatID
	}
	f.notifications = append(f.notifications, p.Notifications...)
	return f.chatsByReq[p.RequestID], nil
}

func (f *fakeStore) SubmitCompletion(_ context.Context, p SubmitCompletionParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[p.RequestID]
	if !ok {
		return "", ErrNotFound
	}
	if r.Status != StatusInProgress {
		return "", &StateConflictError{Current: string(r.Status), Expected: string(StatusInProgress)}
	}
	r.Status = StatusPendingCompletion
	now := time.Now()
	r.CompletedAt = &now
	f.requests[p.RequestID] = r

	id := p.CompletionID
	for _, c := range f.completions {
		if c.RequestID == p.RequestID {
			id = c.ID
			break
		}
	}
	f.completions[id] = Completion{
		ID:            id,
		RequestID:     p.RequestID,
		EmployeeNotes: p.EmployeeNotes,
		Status:        CompletionPendingReview,
		SubmittedAt:   now,
	}
	f.notifications = append(f.notifications, p.Notifications...)
	return id, nil
}

func (f *fakeStore) ApproveCompletion(_ context.Context, p ApproveParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.completions[p.CompletionID]
	if !ok {
		return ErrNotFound
	}
	if c.Status != CompletionPendingReview {
		return &StateConflictError{Current: string(c.Status), Expected: string(CompletionPendingReview)}
	}
	r, ok := f.requests[p.RequestID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusPendingCompletion {
		return &StateConflictError{Current: string(r.Status), Expected: string(StatusPendingCompletion)}
	}

	now := time.Now()
	c.Status = CompletionClosed
	c.ReviewNotes = p.Notes
	c.ReviewedBy = p.ModeratorID
	c.ReviewedAt = &now
	f.completions[p.CompletionID] = c

	r.Status = StatusClosed
	r.ClosedAt = &now
	f.requests[p.RequestID] = r

	f.archivedChats[p.RequestID] = true
	f.wallets[p.ToUserID] += p.NetPayout
	f.completedBy[p.ToUserID]++
	f.transactions = append(f.transactions, p)
	f.notifications = append(f.notifications, p.Notifications...)
	return nil
}

func (f *fakeStore) ReopenCompletion(_ context.Context, p ReopenParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.completions[p.CompletionID]
	if !ok {
		return ErrNotFound
	}
	if c.Status != CompletionPendingReview {
		return &StateConflictError{Current: string(c.Status), Expected: string(CompletionPendingReview)}
	}
	r, ok := f.requests[p.RequestID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusPendingCompletion {
		return &StateConflictError{Current: string(r.Status), Expected: string(StatusPendingCompletion)}
	}

	now := time.Now()
	c.Status = CompletionNeedsRevision
	c.ReviewNotes = p.Notes
	c.ReviewedBy = p.ModeratorID
	c.ReviewedAt = &now
	f.completions[p.CompletionID] = c

	r.Status = StatusInProgress
	r.CompletedAt = nil
	f.requests[p.RequestID] = r
	f.notifications = append(f.notifications, p.Notifications...)
	return nil
}

func (f *fakeStore) noticeTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notifications))
	for i, n := range f.notifications {
		out[i] = n.Type
	}
	return out
}

func statusIn(s Status, list []Status) bool {
	return strings.Contains("|"+joinStatuses(list)+"|", "|"+string(s)+"|")
}
