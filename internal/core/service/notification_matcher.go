package service

import (
	"context"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/port"
)

// NotificationMatcher derives, for one user, every stock entry at a favorited
// pharmacy whose medicine the user subscribed to.
//
// Each pharmacy is read through Pharmacy.Stocks, which holds the same lock
// StockLedger mutates under, so a pass never observes a half-applied change
// within one pharmacy. Different pharmacies may be read at different points
// in time.
type NotificationMatcher struct {
	store port.DomainStore
}

func NewNotificationMatcher(store port.DomainStore) *NotificationMatcher {
	return &NotificationMatcher{store: store}
}

func (m *NotificationMatcher) FindNotifications(ctx context.Context, username string) ([]domain.MedicineNotification, error) {
	u, err := m.store.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return m.Match(ctx, u)
}

// Match never returns nil; favorites that no longer resolve are skipped.
func (m *NotificationMatcher) Match(ctx context.Context, u *domain.User) ([]domain.MedicineNotification, error) {
	out := make([]domain.MedicineNotification, 0)

	wanted := make(map[string]struct{})
	for _, id := range u.Subscriptions() {
		wanted[id] = struct{}{}
	}
	if len(wanted) == 0 {
		return out, nil
	}

	for _, pharmacyID := range u.Favorites() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pharmacy, err := m.store.GetPharmacy(ctx, pharmacyID)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, ms := range pharmacy.Stocks() {
			if _, ok := wanted[ms.Medicine.ID]; ok {
				out = append(out, domain.MedicineNotification{MedicineStock: ms, Pharmacy: pharmacy})
			}
		}
	}
	return out, nil
}
