package port

import (
	"context"

	"github.com/rl1809/pharmastock/internal/core/domain"
)

type DatabaseRepository interface {
	// RecordMovement journals a movement and upserts the resulting stock snapshot
	RecordMovement(ctx context.Context, movement domain.StockMovement) error

	// GetStock reads the last journaled stock count for a (pharmacy, medicine) pair
	GetStock(ctx context.Context, pharmacyID, medicineID string) (int, error)
}
