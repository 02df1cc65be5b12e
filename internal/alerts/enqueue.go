package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init(os.Getenv("REDIS_ADDR"))
	}
	return client
}

func cents(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func enqueueServiceEvent(kind, requestID, requesterID, employeeID, email, subject, body string, amount int64) error {
	env := EmailEnvelope{To: email, Subject: subject, Body: body}
	payload := ServiceEventPayload{
		RequestID:   requestID,
		RequesterID: requesterID,
		EmployeeID:  employeeID,
		Email:       email,
		Amount:      amount,
		Envelope:    env,
		SentAt:      time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err := ensureClient().Enqueue(asynq.NewTask(kind, b), asynq.Queue("emails"))
	return err
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func EnqueueWelcomeEmail(userID, email, name string) error {
	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	base = strings.TrimRight(base, "/")

	subject := fmt.Sprintf("Welcome to BoostHive, %s!", name)
	body := fmt.Sprintf("Hi %s, thanks for joining BoostHive.\n\nOpen BoostHive: %s", name, base)

	payload := WelcomeEmailPayload{
		UserID:   userID,
		Name:     name,
		Email:    email,
		Envelope: EmailEnvelope{To: email, Subject: subject, Body: body},
		SentAt:   time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err := ensureClient().Enqueue(asynq.NewTask(TaskWelcomeEmail, b), asynq.Queue("emails"))
	return err
}

// EnqueueRequestAccepted notifies the requester that the employee accepted
func EnqueueRequestAccepted(requestID, requesterID, employeeID, requesterEmail string, amount int64) error {
	return enqueueServiceEvent(TaskRequestAccepted, requestID, requesterID, employeeID, requesterEmail,
		"Your service request was accepted",
		fmt.Sprintf("Request %s was accepted. Confirm it to get started. Amount %s.", requestID, cents(amount)),
		amount)
}

// EnqueueServiceStarted notifies the employee that the requester confirmed
func EnqueueServiceStarted(requestID, requesterID, employeeID, employeeEmail string, amount int64) error {
	return enqueueServiceEvent(TaskServiceStarted, requestID, requesterID, employeeID, employeeEmail,
		"Service confirmed and started",
		fmt.Sprintf("Request %s was confirmed by the requester. The service is now in progress.", requestID),
		amount)
}

// EnqueueCompletionSubmitted notifies the requester that the work was claimed done
func EnqueueCompletionSubmitted(requestID, requesterID, employeeID, requesterEmail string, amount int64) error {
	return enqueueServiceEvent(TaskCompletionSubmitted, requestID, requesterID, employeeID, requesterEmail,
		"Your service was marked complete",
		fmt.Sprintf("Request %s was marked complete. A moderator will review it shortly.", requestID),
		amount)
}

// EnqueueServiceReopened notifies the employee that a moderator wants revisions
func EnqueueServiceReopened(requestID, requesterID, employeeID, employeeEmail, notes string) error {
	return enqueueServiceEvent(TaskServiceReopened, requestID, requesterID, employeeID, employeeEmail,
		"Revision requested on your service",
		fmt.Sprintf("Request %s was sent back for revision: %s", requestID, notes),
		0)
}

// EnqueuePaymentReceived notifies the employee of a settled payout
func EnqueuePaymentReceived(requestID, requesterID, employeeID, employeeEmail string, netPayout int64) error {
	return enqueueServiceEvent(TaskPaymentReceived, requestID, requesterID, employeeID, employeeEmail,
		"Payment released to your wallet",
		fmt.Sprintf("Request %s was approved. %s has been credited to your wallet.", requestID, cents(netPayout)),
		netPayout)
}

// EnqueueRequestCancelled notifies the employee that the requester backed out
func EnqueueRequestCancelled(requestID, requesterID, employeeID, employeeEmail string, amount int64) error {
	return enqueueServiceEvent(TaskRequestCancelled, requestID, requesterID, employeeID, employeeEmail,
		"Service request cancelled",
		fmt.Sprintf("Request %s was cancelled.", requestID),
		amount)
}

// EnqueueMessageNew notifies the other chat party of a new message
func EnqueueMessageNew(chatID, senderID, recipientID, recipientEmail, body string) error {
	payload := MessageNewPayload{
		ChatID:    chatID,
		SenderID:  senderID,
		Recipient: recipientID,
		Email:     recipientEmail,
		Body:      body,
		Envelope: EmailEnvelope{
			To:      recipientEmail,
			Subject: "New message on BoostHive",
			Body:    "You have a new message in one of your service chats.",
		},
		SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err := ensureClient().Enqueue(asynq.NewTask(TaskMessageNew, b), asynq.Queue("emails"))
	return err
}
