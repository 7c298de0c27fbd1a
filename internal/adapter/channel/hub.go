package channel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
)

// Sender is the push side of a Channel, independent of its inbound type.
type Sender interface {
	ID() string
	Send(ctx context.Context, v any) error
	Close() error
}

// Hub tracks the open channels of each user. A user may hold several.
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	conns map[string]map[string]Sender
}

func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger.Component(log, "channel_hub"),
		metrics: m,
		conns:   make(map[string]map[string]Sender),
	}
}

func (h *Hub) Register(username string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byID, ok := h.conns[username]
	if !ok {
		byID = make(map[string]Sender)
		h.conns[username] = byID
	}
	if _, dup := byID[s.ID()]; dup {
		return
	}
	byID[s.ID()] = s
	h.metrics.ChannelOpened()
	h.logger.Debug("channel registered", zap.String("username", username), zap.String("channel_id", s.ID()))
}

func (h *Hub) Unregister(username string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(username, s.ID())
}

func (h *Hub) unregisterLocked(username, id string) {
	byID, ok := h.conns[username]
	if !ok {
		return
	}
	if _, ok := byID[id]; !ok {
		return
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(h.conns, username)
	}
	h.metrics.ChannelClosed()
}

func (h *Hub) Connected(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[username]) > 0
}

// Count returns the number of registered channels.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, byID := range h.conns {
		n += len(byID)
	}
	return n
}

// Push sends v to every channel of username. Channels that turn out to be
// closed are dropped from the hub. It returns domain.ErrNotFound when the
// user has no channel, and the joined send errors otherwise.
func (h *Hub) Push(ctx context.Context, username string, v any) error {
	h.mu.RLock()
	senders := make([]Sender, 0, len(h.conns[username]))
	for _, s := range h.conns[username] {
		senders = append(senders, s)
	}
	h.mu.RUnlock()

	if len(senders) == 0 {
		return domain.NewNotFoundError("channel for user", username)
	}

	var errs []error
	for _, s := range senders {
		err := s.Send(ctx, v)
		if err == nil {
			continue
		}
		if domain.IsClosed(err) {
			h.Unregister(username, s)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CloseAll closes and forgets every channel.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for username, byID := range h.conns {
		for id, s := range byID {
			if err := s.Close(); err != nil {
				h.logger.Debug("close channel", zap.String("channel_id", id), zap.Error(err))
			}
			h.unregisterLocked(username, id)
		}
	}
}
