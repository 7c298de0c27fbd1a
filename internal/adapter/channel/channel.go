// Package channel implements the per-connection notification pump: typed
// inbound frames are decoded and handed to a Handler, and any value can be
// pushed back to the peer at any time.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
)

const defaultWriteTimeout = 10 * time.Second

type State int32

const (
	StateOpen State = iota
	StateClosed
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Conn is the transport under a Channel. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Handler[I any] interface {
	OnMessage(ctx context.Context, ch *Channel[I], msg I) error
}

type HandlerFunc[I any] func(ctx context.Context, ch *Channel[I], msg I) error

func (f HandlerFunc[I]) OnMessage(ctx context.Context, ch *Channel[I], msg I) error {
	return f(ctx, ch, msg)
}

// ErrorFrame reports a failed inbound frame back to the peer.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type options struct {
	logger       *zap.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// Channel is Open until Close is called or the transport fails, then
// Closed for good. Send and HandleFrame on a closed channel return
// domain.ErrClosed.
type Channel[I any] struct {
	id           string
	conn         Conn
	handler      Handler[I]
	logger       *zap.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration

	writeMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func New[I any](conn Conn, handler Handler[I], opts ...Option) *Channel[I] {
	o := options{writeTimeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.NewString()
	return &Channel[I]{
		id:           id,
		conn:         conn,
		handler:      handler,
		logger:       logger.Component(o.logger, "channel").With(zap.String("channel_id", id)),
		metrics:      o.metrics,
		writeTimeout: o.writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *Channel[I]) ID() string { return c.id }

func (c *Channel[I]) State() State { return State(c.state.Load()) }

// Done is closed once the channel is Closed.
func (c *Channel[I]) Done() <-chan struct{} { return c.done }

// Serve reads frames until the transport fails, ctx is cancelled or the
// channel is closed. Bad frames are reported to the peer and do not end the
// loop. The channel is Closed when Serve returns.
func (c *Channel[I]) Serve(ctx context.Context) error {
	defer c.Close()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		mt, frame, err := c.conn.ReadMessage()
		if err != nil {
			if c.State() == StateClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if mt != websocket.TextMessage {
			c.report(ctx, domain.NewValidationError("frame", "only text frames are accepted"))
			continue
		}

		if err := c.HandleFrame(ctx, frame); err != nil {
			if domain.IsClosed(err) {
				return nil
			}
			c.report(ctx, err)
		}
	}
}

// HandleFrame decodes one text frame into I and passes it to the handler.
// Undecodable frames yield domain.ErrInvalidArgument.
func (c *Channel[I]) HandleFrame(ctx context.Context, frame []byte) error {
	if c.State() == StateClosed {
		return domain.ErrClosed
	}

	var msg I
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.metrics.IncDecodeErrors()
		return &domain.DomainError{Base: domain.ErrInvalidArgument, Message: "decode frame: " + err.Error()}
	}
	return c.handler.OnMessage(ctx, c, msg)
}

// Send encodes v as JSON and writes it as one text frame. It waits at most
// the write timeout, or until ctx's deadline if that is earlier. Delivery
// beyond the transport buffer is not acknowledged. A failed write closes
// the channel.
func (c *Channel[I]) Send(ctx context.Context, v any) error {
	if c.State() == StateClosed {
		return domain.ErrClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return &domain.DomainError{Base: domain.ErrInvalidArgument, Message: "encode frame: " + err.Error()}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.State() == StateClosed {
		return domain.ErrClosed
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Warn("write failed, closing channel", zap.Error(err))
		c.Close()
		return fmt.Errorf("write frame: %w", errors.Join(domain.ErrClosed, err))
	}
	return nil
}

func (c *Channel[I]) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Channel[I]) report(ctx context.Context, err error) {
	c.logger.Warn("inbound frame rejected", zap.Error(err))
	if sendErr := c.Send(ctx, ErrorFrame{Type: "error", Error: err.Error()}); sendErr != nil {
		c.logger.Debug("error frame not delivered", zap.Error(sendErr))
	}
}
