package port

import (
	"context"

	"github.com/rl1809/pharmastock/internal/core/domain"
)

// DomainStore is the keyed registry of pharmacies, medicines and users.
// Single puts and gets are atomic; callers needing compound atomicity
// bring their own locking. Lookups of unknown keys return domain.ErrNotFound.
type DomainStore interface {
	PutPharmacy(ctx context.Context, pharmacy *domain.Pharmacy) error
	GetPharmacy(ctx context.Context, id string) (*domain.Pharmacy, error)
	ListPharmacies(ctx context.Context) ([]*domain.Pharmacy, error)

	PutMedicine(ctx context.Context, medicine domain.Medicine) error
	GetMedicine(ctx context.Context, id string) (domain.Medicine, error)

	PutUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
