package lifecycle

import "time"

// Status is the lifecycle state of a service request.
type Status string

const (
	StatusPending           Status = "pending"
	StatusEmployeeAccepted  Status = "employee_accepted"
	StatusInProgress        Status = "in_progress"
	StatusPendingCompletion Status = "pending_completion"
	StatusClosed            Status = "closed"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// CompletionStatus is the review state of a submitted completion.
type CompletionStatus string

const (
	CompletionPendingReview CompletionStatus = "pending_review"
	CompletionClosed        CompletionStatus = "closed"
	CompletionNeedsRevision CompletionStatus = "needs_revision"
)

// Offering is a published service a provider makes available at a fixed price.
type Offering struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	GameID     string `json:"game_id"`
	Title      string `json:"title"`
	Price      int64  `json:"price"` // cents
	Active     bool   `json:"active"`
}

// Request is one engagement of a requester against an offering. The amount is
// copied from the offering's price at submission and never changes after.
type Request struct {
	ID               string     `json:"id"`
	OfferingID       string     `json:"offering_id"`
	RequesterID      string     `json:"requester_id"`
	EmployeeID       string     `json:"employee_id"`
	Details          string     `json:"details"`
	Amount           int64      `json:"amount"` // cents
	Status           Status     `json:"status"`
	EmployeeResponse string     `json:"employee_response,omitempty"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Completion is the provider's claim that a request's work is done. There is
// exactly one per request; revision rounds reuse it through its own status.
type Completion struct {
	ID            string           `json:"id"`
	RequestID     string           `json:"request_id"`
	EmployeeNotes string           `json:"employee_notes"`
	Status        CompletionStatus `json:"status"`
	ReviewNotes   string           `json:"review_notes,omitempty"`
	ReviewedBy    string           `json:"reviewed_by,omitempty"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty"`
}

// Notification is an in-app notice written in the same transaction as the
// transition that caused it.
type Notification struct {
	UserID    string
	Type      string
	Title     string
	Body      string
	Reference string
}

// Notification types emitted by transitions.
const (
	NoticeRequestAccepted     = "request_accepted"
	NoticeRequestRejected     = "request_rejected"
	NoticeRequestCancelled    = "request_cancelled"
	NoticeServiceStarted      = "service_started"
	NoticeCompletionSubmitted = "completion_submitted"
	NoticePaymentReceived     = "payment_received"
	NoticeServiceCompleted    = "service_completed"
	NoticeServiceReopened     = "service_reopened"
)
