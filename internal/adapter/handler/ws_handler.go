package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/adapter/channel"
	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/core/service"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
)

const MessageTypeFindNotifications = "find_notifications"

// NotificationRequest is the only inbound frame on a notification channel.
type NotificationRequest struct {
	Type string `json:"type"`
}

// WSHandler upgrades /ws/notifications requests into notification
// channels registered on the hub under the requesting username.
type WSHandler struct {
	users        *service.UserService
	matcher      *service.NotificationMatcher
	dispatcher   *service.NotificationDispatcher
	hub          *channel.Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewWSHandler(
	users *service.UserService,
	matcher *service.NotificationMatcher,
	dispatcher *service.NotificationDispatcher,
	hub *channel.Hub,
	writeTimeout time.Duration,
	log *zap.Logger,
	m *metrics.Metrics,
) *WSHandler {
	return &WSHandler{
		users:      users,
		matcher:    matcher,
		dispatcher: dispatcher,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		writeTimeout: writeTimeout,
		logger:       logger.Component(log, "ws_handler"),
		metrics:      m,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if _, err := h.users.GetUser(r.Context(), username); err != nil {
		writeJSON(w, httpStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("username", username), zap.Error(err))
		return
	}

	ch := channel.New[NotificationRequest](conn, h.onMessage(username),
		channel.WithLogger(h.logger.With(zap.String("username", username))),
		channel.WithMetrics(h.metrics),
		channel.WithWriteTimeout(h.writeTimeout),
	)
	h.hub.Register(username, ch)
	defer h.hub.Unregister(username, ch)

	// Current matches go out right away; later ones follow stock changes.
	if err := h.dispatcher.Enqueue(username); err != nil {
		h.logger.Warn("initial notifications not queued", zap.String("username", username), zap.Error(err))
	}

	if err := ch.Serve(r.Context()); err != nil {
		h.logger.Debug("channel ended", zap.String("username", username), zap.Error(err))
	}
}

func (h *WSHandler) onMessage(username string) channel.HandlerFunc[NotificationRequest] {
	return func(ctx context.Context, ch *channel.Channel[NotificationRequest], msg NotificationRequest) error {
		if msg.Type != MessageTypeFindNotifications {
			return domain.NewValidationError("type", "unsupported message type "+msg.Type)
		}
		notifications, err := h.matcher.FindNotifications(ctx, username)
		if err != nil {
			return err
		}
		return ch.Send(ctx, service.NewNotificationsMessage(notifications))
	}
}
