package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// wsConn is the write side of a registered connection.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
}

type hub struct {
	chatID  string
	clients map[wsConn]bool
	mu      sync.RWMutex
}

var (
	hubsMu sync.RWMutex
	hubs   = make(map[string]*hub)
)

func getHub(chatID string) *hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	if h, ok := hubs[chatID]; ok {
		return h
	}
	h := &hub{chatID: chatID, clients: make(map[wsConn]bool)}
	hubs[chatID] = h
	return h
}

func (h *hub) broadcast(evt wsEvent) {
	payload, _ := json.Marshal(evt)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.WriteMessage(websocket.TextMessage, payload)
	}
}

func (h *hub) register(c wsConn) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c wsConn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChatWS - websocket for realtime updates on a chat
func ChatWS(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	chatID := c.Param("id")
	if chatID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing chat id"})
	}

	info, err := loadChat(context.Background(), chatID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found or inaccessible"})
	}
	if userID != info.RequesterID && userID != info.EmployeeID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this chat"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h := getHub(chatID)
	h.register(ws)
	h.broadcast(wsEvent{Type: "presence_join", Data: echo.Map{"user_id": userID}})

	// Read loop; the protocol is server push, client frames are discarded
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.unregister(ws)
			_ = ws.Close()
			h.broadcast(wsEvent{Type: "presence_leave", Data: echo.Map{"user_id": userID}})
			break
		}
	}
	return nil
}

// BroadcastNewMessage - publish a new message event to the chat hub
func BroadcastNewMessage(chatID string, message interface{}) {
	getHub(chatID).broadcast(wsEvent{Type: "message_new", Data: message})
}

// BroadcastArchived - tell subscribers the chat went read-only
func BroadcastArchived(chatID string) {
	getHub(chatID).broadcast(wsEvent{Type: "chat_archived", Data: echo.Map{"chat_id": chatID}})
}
