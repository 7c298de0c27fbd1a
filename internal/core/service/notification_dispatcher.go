package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
	"github.com/rl1809/pharmastock/internal/port"
)

var (
	ErrDispatchQueueFull = errors.New("dispatch queue full")
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

const MessageTypeNotifications = "notifications"

// NotificationsMessage is the outbound frame carrying a user's matches.
type NotificationsMessage struct {
	Type          string                        `json:"type"`
	Notifications []domain.MedicineNotification `json:"notifications"`
}

func NewNotificationsMessage(n []domain.MedicineNotification) NotificationsMessage {
	return NotificationsMessage{Type: MessageTypeNotifications, Notifications: n}
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	PushTimeout time.Duration
}

// NotificationDispatcher runs match-and-push jobs on a fixed pool of
// workers fed by a bounded queue. A user already waiting in the queue is
// not queued twice; a full queue rejects new jobs.
type NotificationDispatcher struct {
	matcher *NotificationMatcher
	store   port.DomainStore
	pusher  port.NotificationPusher
	cfg     DispatcherConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	jobs chan string
	wg   sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	started bool
	stopped bool
	cancel  context.CancelFunc
}

func NewNotificationDispatcher(
	matcher *NotificationMatcher,
	store port.DomainStore,
	pusher port.NotificationPusher,
	cfg DispatcherConfig,
	log *zap.Logger,
	m *metrics.Metrics,
) *NotificationDispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 5 * time.Second
	}
	return &NotificationDispatcher{
		matcher: matcher,
		store:   store,
		pusher:  pusher,
		cfg:     cfg,
		logger:  logger.Component(log, "notification_dispatcher"),
		metrics: m,
		jobs:    make(chan string, cfg.QueueSize),
		pending: make(map[string]struct{}),
	}
}

func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(ctx, id)
		}(i)
	}
	d.logger.Info("dispatcher started", zap.Int("workers", d.cfg.Workers))
}

// Stop rejects new jobs, cancels in-flight pushes and waits for workers.
// Jobs still queued are discarded.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Enqueue schedules a match-and-push for username without blocking.
func (d *NotificationDispatcher) Enqueue(username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}
	if _, ok := d.pending[username]; ok {
		return nil
	}

	select {
	case d.jobs <- username:
		d.pending[username] = struct{}{}
		return nil
	default:
		d.metrics.IncDispatchRejected()
		return ErrDispatchQueueFull
	}
}

// StockChanged queues a delivery for every connected user who favors the
// movement's pharmacy and subscribes to its medicine, provided the medicine
// is in stock. It returns the number of users queued.
func (d *NotificationDispatcher) StockChanged(ctx context.Context, m domain.StockMovement) (int, error) {
	if m.Stock <= 0 {
		return 0, nil
	}

	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	queued := 0
	for _, u := range users {
		if !u.Favors(m.PharmacyID) || !u.WantsMedicine(m.MedicineID) || !d.pusher.Connected(u.Username) {
			continue
		}
		if err := d.Enqueue(u.Username); err != nil {
			d.logger.Warn("notification not queued",
				zap.String("username", u.Username),
				zap.String("pharmacy_id", m.PharmacyID),
				zap.Error(err),
			)
			if errors.Is(err, ErrDispatcherStopped) {
				return queued, err
			}
			continue
		}
		queued++
	}
	return queued, nil
}

// Deliver matches and pushes synchronously on the caller's goroutine.
func (d *NotificationDispatcher) Deliver(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PushTimeout)
	defer cancel()

	notifications, err := d.matcher.FindNotifications(ctx, username)
	if err != nil {
		return fmt.Errorf("find notifications: %w", err)
	}
	if err := d.pusher.Push(ctx, username, NewNotificationsMessage(notifications)); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	d.metrics.IncNotificationsPushed()
	return nil
}

func (d *NotificationDispatcher) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case username, ok := <-d.jobs:
			if !ok {
				return
			}
			d.mu.Lock()
			delete(d.pending, username)
			d.mu.Unlock()

			if err := d.Deliver(ctx, username); err != nil {
				d.logger.Warn("notification delivery failed",
					zap.Int("worker", id),
					zap.String("username", username),
					zap.Error(err),
				)
				continue
			}
			d.logger.Debug("notifications delivered", zap.Int("worker", id), zap.String("username", username))
		}
	}
}
