package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/router"
	"github.com/fieldmate/backend/pkg/logger"
)

type wsAskMessage struct {
	Text       string `json:"text"`
	Channel    string `json:"channel"`
	UserID     string `json:"user_id"`
	SafetyFlag bool   `json:"safety_flag"`
}

type wsError struct {
	Error string `json:"error"`
}

// WebSocketHandler serves interactive clients (the technician mobile app)
// that keep one connection open across a job and ask as they go.
type WebSocketHandler struct {
	router         *router.Router
	requestTimeout time.Duration
}

func NewWebSocketHandler(r *router.Router, requestTimeout time.Duration) *WebSocketHandler {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &WebSocketHandler{
		router:         r,
		requestTimeout: requestTimeout,
	}
}

// Handle processes ask messages on a websocket connection until the client
// disconnects. One in-flight request per connection.
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	connID := uuid.New().String()
	logger.Info("WebSocket connected", zap.String("conn_id", connID))

	for {
		var msg wsAskMessage
		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket closed",
				zap.String("conn_id", connID),
				zap.Error(err),
			)
			return
		}

		if msg.Text == "" {
			if err := c.WriteJSON(wsError{Error: "text is required"}); err != nil {
				return
			}
			continue
		}

		req := domain.Request{
			ID:         uuid.New().String(),
			Text:       msg.Text,
			Channel:    "websocket",
			UserID:     msg.UserID,
			SafetyFlag: msg.SafetyFlag,
			ReceivedAt: time.Now(),
		}
		if msg.Channel != "" {
			req.Channel = msg.Channel
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.requestTimeout)
		resp, err := h.router.Ask(ctx, req)
		cancel()

		if err != nil {
			if writeErr := c.WriteJSON(wsError{Error: err.Error()}); writeErr != nil {
				return
			}
			continue
		}

		if err := c.WriteJSON(resp); err != nil {
			logger.Warn("WebSocket write failed",
				zap.String("conn_id", connID),
				zap.Error(err),
			)
			return
		}
	}
}
