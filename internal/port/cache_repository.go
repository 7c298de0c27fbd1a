package port

import "context"

type CacheRepository interface {
	// SetStockIfNewer mirrors a stock count unless a newer version is already cached
	SetStockIfNewer(ctx context.Context, pharmacyID, medicineID string, stock int, version int64) (bool, error)

	// GetStock reads a mirrored stock count, returns domain.ErrNotFound when absent
	GetStock(ctx context.Context, pharmacyID, medicineID string) (int, error)
}
