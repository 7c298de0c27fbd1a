package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
	"github.com/rl1809/pharmastock/internal/port"
)

// MovementObserver reacts to applied stock movements.
type MovementObserver interface {
	StockChanged(ctx context.Context, m domain.StockMovement) (int, error)
}

// MovementProcessor drains the ledger's movement queue, hands each movement
// to every sink concurrently and then to the observer. Failures are logged
// and counted, never retried.
type MovementProcessor struct {
	sinks    []port.StockSink
	observer MovementObserver
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewMovementProcessor(sinks []port.StockSink, observer MovementObserver, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *MovementProcessor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MovementProcessor{
		sinks:    sinks,
		observer: observer,
		timeout:  timeout,
		logger:   logger.Component(log, "movement_processor"),
		metrics:  m,
	}
}

// Run returns once queue is closed and drained.
func (p *MovementProcessor) Run(id int, queue <-chan domain.StockMovement) {
	for movement := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		p.Process(ctx, id, movement)
		cancel()
	}
}

func (p *MovementProcessor) Process(ctx context.Context, id int, m domain.StockMovement) {
	// Sinks are independent; a failing one never cancels the others.
	var g errgroup.Group
	for _, sink := range p.sinks {
		g.Go(func() error {
			if err := sink.Consume(ctx, m); err != nil {
				p.metrics.IncSinkFailure(sink.Name())
				p.logger.Error("sink failed",
					zap.Int("worker", id),
					zap.String("sink", sink.Name()),
					zap.String("movement_id", m.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if p.observer == nil {
		return
	}
	if _, err := p.observer.StockChanged(ctx, m); err != nil {
		p.logger.Warn("stock change observer failed",
			zap.Int("worker", id),
			zap.String("movement_id", m.ID),
			zap.Error(err),
		)
	}
}
