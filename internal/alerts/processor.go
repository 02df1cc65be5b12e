package alerts

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/hibiken/asynq"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the Asynq server and initializes a shared client.
func Init(redisAddr string) {
	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
	}
	if redisAddr == "" {
		// Default to docker-compose service name; localhost for local runs
		redisAddr = "redis:6379"
		if os.Getenv("RUN_LOCAL") == "true" {
			redisAddr = "127.0.0.1:6379"
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleWelcomeEmail)
	mux.HandleFunc(TaskRequestAccepted, handleServiceEvent("RequestAccepted"))
	mux.HandleFunc(TaskServiceStarted, handleServiceEvent("ServiceStarted"))
	mux.HandleFunc(TaskCompletionSubmitted, handleServiceEvent("CompletionSubmitted"))
	mux.HandleFunc(TaskServiceReopened, handleServiceEvent("ServiceReopened"))
	mux.HandleFunc(TaskPaymentReceived, handleServiceEvent("PaymentReceived"))
	mux.HandleFunc(TaskRequestCancelled, handleServiceEvent("RequestCancelled"))
	mux.HandleFunc(TaskMessageNew, handleMessageNew)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// Handlers below parse payloads and hand them to the mailer.

func handleWelcomeEmail(_ context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] WelcomeEmail send failed: %v", err)
		return err
	}
	log.Printf("[notify] WelcomeEmail sent -> to=%s user=%s", p.Email, p.UserID)
	return nil
}

func handleServiceEvent(name string) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var p ServiceEventPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
			log.Printf("[notify][ERROR] %s send failed: %v", name, err)
			return err
		}
		log.Printf("[notify] %s sent -> request=%s to=%s", name, p.RequestID, p.Email)
		return nil
	}
}

func handleMessageNew(_ context.Context, t *asynq.Task) error {
	var p MessageNewPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] MessageNew send failed: %v", err)
		return err
	}
	log.Printf("[notify] MessageNew sent -> chat=%s to=%s", p.ChatID, p.Email)
	return nil
}
