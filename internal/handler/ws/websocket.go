package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/reconecta/chat/backend/internal/logging"
	"github.com/reconecta/chat/backend/internal/model/chat"
	chatService "github.com/reconecta/chat/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler gives every WebSocket connection its own conversation.
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New creates a WebSocket handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage is the payload of an inbound "text" frame.
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// connection is the viewport of one socket. Writes are serialised because
// turns run off the read loop.
type connection struct {
	conn           *websocket.Conn
	conversationID string
	logger         zerolog.Logger

	mu sync.Mutex
}

func (c *connection) send(msgType string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteJSON(outgoingMessage{
		Type:           msgType,
		ConversationID: c.conversationID,
		Data:           data,
		Timestamp:      time.Now().Unix(),
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("type", msgType).Msg("write failed")
	}
}

func (c *connection) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

func (c *connection) Render(messages []chat.Message) {
	c.send("messages", map[string]any{"messages": messages})
}

func (c *connection) ScrollToBottom() {
	c.send("scroll", map[string]string{"behavior": "smooth"})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.Component("websocket")
		logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	var turns sync.WaitGroup
	defer turns.Wait()
	defer cancel()

	conv := h.chatSvc.NewConversation(ctx)
	c := &connection{
		conn:           conn,
		conversationID: conv.ID,
		logger:         logging.Component("websocket").With().Str("conv_id", conv.ID).Logger(),
	}
	c.logger.Info().Msg("connection opened")
	defer c.logger.Info().Msg("connection closed")

	defer chatService.NewViewSynchronizer(c).Attach(conv.Store())()
	defer conv.Controller.OnLoadingChange(func(on bool) {
		c.send("loading", map[string]bool{"loading": on})
	})()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	p := h.chatSvc.Persona()
	c.send("connected", map[string]any{
		"persona":  map[string]string{"name": p.Name, "title": p.Title},
		"messages": conv.Store().Snapshot(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "text":
			h.handleText(ctx, c, conv, msg.Data, &turns)
		default:
			c.sendError("unsupported message type: " + msg.Type)
		}
	}
}

// handleText starts a turn on its own goroutine so the read loop keeps
// serving pongs while the reply streams.
func (h *Handler) handleText(ctx context.Context, c *connection, conv *chatService.Conversation, raw json.RawMessage, turns *sync.WaitGroup) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		c.sendError("invalid text payload")
		return
	}
	if text.Text == "" {
		return
	}

	release, err := conv.Acquire()
	if err != nil {
		c.sendError(err.Error())
		return
	}

	turns.Add(1)
	go func() {
		defer turns.Done()
		defer release()

		if err := conv.Controller.SendMessage(ctx, text.Text); err != nil {
			c.sendError("chat session unavailable")
		}
	}()
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
