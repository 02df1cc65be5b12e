package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail        = "email:welcome"
	TaskRequestAccepted     = "email:request_accepted"
	TaskServiceStarted      = "email:service_started"
	TaskCompletionSubmitted = "email:completion_submitted"
	TaskServiceReopened     = "email:service_reopened"
	TaskPaymentReceived     = "email:payment_received"
	TaskRequestCancelled    = "email:request_cancelled"
	TaskMessageNew          = "email:message_new"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// ServiceEventPayload covers every lifecycle email: accept, start,
// completion, reopen, payout, cancel. Amount is in cents.
type ServiceEventPayload struct {
	RequestID   string        `json:"request_id"`
	RequesterID string        `json:"requester_id"`
	EmployeeID  string        `json:"employee_id"`
	Email       string        `json:"email"`
	Amount      int64         `json:"amount"`
	Envelope    EmailEnvelope `json:"envelope"`
	SentAt      time.Time     `json:"sent_at"`
}

// Message new payload (sent to the other chat party)
type MessageNewPayload struct {
	ChatID    string        `json:"chat_id"`
	SenderID  string        `json:"sender_id"`
	Recipient string        `json:"recipient"`
	Email     string        `json:"email"`
	Body      string        `json:"body"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}
