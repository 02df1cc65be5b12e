package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/boosthive/boosthive/internal/alerts"
	"github.com/boosthive/boosthive/internal/db"
)

type chatInfo struct {
	ID          string
	RequestID   string
	IsArchived  bool
	RequesterID string
	EmployeeID  string
}

func loadChat(ctx context.Context, chatID string) (chatInfo, error) {
	var info chatInfo
	err := db.Conn.QueryRow(ctx,
		`SELECT c.id, c.request_id, c.is_archived, sr.requester_id, sr.employee_id
         FROM chats c JOIN service_requests sr ON sr.id = c.request_id
         WHERE c.id = $1`, chatID,
	).Scan(&info.ID, &info.RequestID, &info.IsArchived, &info.RequesterID, &info.EmployeeID)
	return info, err
}

func (ci chatInfo) otherParty(userID string) string {
	if userID == ci.RequesterID {
		return ci.EmployeeID
	}
	return ci.RequesterID
}

// SendMessage - requester or employee posts into the chat. Archived chats
// are read-only; the settlement archived them for a reason.
func SendMessage(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	chatID := c.Param("id")
	if chatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing chat id"})
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil || body.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	info, err := loadChat(context.Background(), chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch chat"})
	}
	if userID != info.RequesterID && userID != info.EmployeeID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this chat"})
	}
	if info.IsArchived {
		return c.JSON(http.StatusConflict, echo.Map{"error": "chat is archived"})
	}

	msgID := uuid.New().String()
	var createdAt time.Time
	err = db.Conn.QueryRow(context.Background(),
		`INSERT INTO chat_messages (id, chat_id, sender_id, content)
         VALUES ($1, $2, $3, $4) RETURNING created_at`,
		msgID, chatID, userID, body.Content,
	).Scan(&createdAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	// Realtime push to WS subscribers
	BroadcastNewMessage(chatID, echo.Map{
		"id":         msgID,
		"chat_id":    chatID,
		"sender_id":  userID,
		"content":    body.Content,
		"created_at": createdAt.UTC().Format(time.RFC3339),
	})

	// Email the other party (best-effort)
	recipientID := info.otherParty(userID)
	var recipientEmail string
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, recipientID).Scan(&recipientEmail)
	if recipientEmail != "" {
		_ = alerts.EnqueueMessageNew(chatID, userID, recipientID, recipientEmail, body.Content)
	}

	return c.JSON(http.StatusOK, echo.Map{"message_id": msgID})
}

// History - the conversation, oldest first, with an optional since filter
func History(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	chatID := c.Param("id")
	if chatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing chat id"})
	}

	info, err := loadChat(context.Background(), chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch chat"})
	}
	// Moderators may read any chat; it is their review evidence.
	if userID != info.RequesterID && userID != info.EmployeeID && role != "moderator" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this chat"})
	}

	query := `SELECT id, sender_id, content, created_at
              FROM chat_messages WHERE chat_id = $1 ORDER BY created_at ASC`
	args := []interface{}{chatID}
	if sinceStr := c.QueryParam("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since timestamp, use RFC3339"})
		}
		query = `SELECT id, sender_id, content, created_at
                 FROM chat_messages WHERE chat_id = $1 AND created_at > $2 ORDER BY created_at ASC`
		args = append(args, since)
	}

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
	}
	defer rows.Close()

	type message struct {
		ID        string `json:"id"`
		SenderID  string `json:"sender_id"`
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	}

	msgs := []message{}
	for rows.Next() {
		var m message
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Content, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		m.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		msgs = append(msgs, m)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"chat_id":     info.ID,
		"request_id":  info.RequestID,
		"is_archived": info.IsArchived,
		"messages":    msgs,
	})
}

// MyChats - every chat the user participates in
func MyChats(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT c.id, c.request_id, c.is_archived, c.created_at, sr.requester_id, sr.employee_id, sr.status
         FROM chats c JOIN service_requests sr ON sr.id = c.request_id
         WHERE sr.requester_id = $1 OR sr.employee_id = $1
         ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list chats"})
	}
	defer rows.Close()

	type chatRow struct {
		ID            string `json:"id"`
		RequestID     string `json:"request_id"`
		IsArchived    bool   `json:"is_archived"`
		CreatedAt     string `json:"created_at"`
		RequesterID   string `json:"requester_id"`
		EmployeeID    string `json:"employee_id"`
		RequestStatus string `json:"request_status"`
	}

	chats := []chatRow{}
	for rows.Next() {
		var r chatRow
		var createdAt time.Time
		if err := rows.Scan(&r.ID, &r.RequestID, &r.IsArchived, &createdAt, &r.RequesterID, &r.EmployeeID, &r.RequestStatus); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		chats = append(chats, r)
	}

	return c.JSON(http.StatusOK, echo.Map{"chats": chats})
}

// ListAll - moderator overview of every chat
func ListAll(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT c.id, c.request_id, c.is_archived, c.created_at,
                (SELECT COUNT(*) FROM chat_messages m WHERE m.chat_id = c.id)
         FROM chats c ORDER BY c.created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list chats"})
	}
	defer rows.Close()

	items := []map[string]interface{}{}
	for rows.Next() {
		var id, requestID string
		var isArchived bool
		var createdAt time.Time
		var messageCount int
		if err := rows.Scan(&id, &requestID, &isArchived, &createdAt, &messageCount); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		items = append(items, map[string]interface{}{
			"id":            id,
			"request_id":    requestID,
			"is_archived":   isArchived,
			"created_at":    createdAt.UTC().Format(time.RFC3339),
			"message_count": messageCount,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"chats": items})
}
