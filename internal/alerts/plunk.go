package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Plunk is the fallback transactional mail provider, selected with
// MAIL_PROVIDER=plunk. SMTP stays the default path.

const plunkDefaultEndpoint = "https://api.useplunk.com/v1/send"

var plunkHTTP = &http.Client{Timeout: 10 * time.Second}

type plunkMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func plunkEndpoint() string {
	if u := os.Getenv("PLUNK_API_URL"); u != "" {
		return u
	}
	return plunkDefaultEndpoint
}

func sendViaPlunk(to, subject, body string) error {
	key := os.Getenv("PLUNK_API_KEY")
	if key == "" {
		return fmt.Errorf("plunk not configured: set PLUNK_API_KEY")
	}

	payload, err := json.Marshal(plunkMessage{
		To:      to,
		Subject: subject,
		Body:    body,
		From:    os.Getenv("PLUNK_FROM"),
		Reply:   os.Getenv("MAIL_REPLY_TO"),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, plunkEndpoint(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := plunkHTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, detail)
	}
	return nil
}
