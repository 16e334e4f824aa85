// Package ws upgrades authenticated HTTP requests to websocket sessions and
// feeds inbound frames to the delivery router.
package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/whatease/backend/internal/auth"
	chatservice "github.com/whatease/backend/internal/service/chat"
)

type Handler struct {
	svc      *chatservice.Service
	tokens   *auth.Manager
	upgrader websocket.Upgrader
}

func New(svc *chatservice.Service, tokens *auth.Manager) *Handler {
	return &Handler{
		svc:    svc,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Content   string `json:"content"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket requests, so the token
	// travels as a query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusUnauthorized)
		return
	}
	email, err := h.tokens.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid authentication credentials", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	c := newClient(conn)
	handle := h.svc.ConnectionOpened(email, c)
	defer func() {
		h.svc.ConnectionClosed(email, handle)
		c.close()
	}()

	go c.writePump()

	log.Printf("[ws] session opened for %s", email)

	// Persistence must outlive the connection: a message accepted just
	// before a disconnect still has to reach the store.
	opCtx := context.WithoutCancel(r.Context())

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error for %s: %v", email, err)
			}
			log.Printf("[ws] session closed for %s", email)
			return
		}

		conn.SetReadDeadline(time.Now().Add(pongWait))

		h.handleFrame(opCtx, c, email, &frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, c *client, email string, frame *inboundFrame) {
	switch frame.Type {
	case "send_message":
		// The stored record comes back to this client through its
		// registered channel; no direct write here.
		if _, err := h.svc.SendDirectMessage(ctx, email, frame.Recipient, frame.Content, frame.MessageID); err != nil {
			c.sendError(err.Error())
		}
	case "bot_message":
		if _, err := h.svc.RequestAssistantReply(ctx, email, frame.Content); err != nil {
			c.sendError(err.Error())
		}
	default:
		c.sendError("unsupported frame type: " + frame.Type)
	}
}
