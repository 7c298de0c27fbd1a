package port

import (
	"context"

	"github.com/rl1809/pharmastock/internal/core/domain"
)

// StockSink receives applied stock movements off the mutation path.
type StockSink interface {
	Name() string
	Consume(ctx context.Context, movement domain.StockMovement) error
}
