package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pharmastock/internal/core/domain"
)

type match struct {
	pharmacy, medicine string
	stock              int
}

func matches(n []domain.MedicineNotification) []match {
	out := make([]match, 0, len(n))
	for _, x := range n {
		out = append(out, match{x.Pharmacy.ID, x.MedicineStock.Medicine.ID, x.MedicineStock.Stock})
	}
	return out
}

func TestFindNotifications_AfterStockChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	matcher := NewNotificationMatcher(f.store)

	_, err := f.users.RegisterUser(ctx, "ana")
	require.NoError(t, err)
	require.NoError(t, f.users.FavoritePharmacy(ctx, "ana", f.p1))
	require.NoError(t, f.users.SubscribeMedicine(ctx, "ana", f.m1))

	_, err = f.ledger.ChangeMedicineStock(ctx, f.p1, f.m1, domain.OperationAdd, 3)
	require.NoError(t, err)

	got, err := matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []match{{f.p1, f.m1, 13}}, matches(got))
}

func TestFindNotifications_SetEquality(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	matcher := NewNotificationMatcher(f.store)

	_, err := f.ledger.AddNewMedicineStock(ctx, f.p1, f.m2, 4)
	require.NoError(t, err)
	_, err = f.ledger.AddNewMedicineStock(ctx, f.p2, f.m1, 0)
	require.NoError(t, err)
	_, err = f.ledger.AddNewMedicineStock(ctx, f.p2, f.m2, 8)
	require.NoError(t, err)

	_, err = f.users.RegisterUser(ctx, "ana")
	require.NoError(t, err)
	require.NoError(t, f.users.FavoritePharmacy(ctx, "ana", f.p1))
	require.NoError(t, f.users.FavoritePharmacy(ctx, "ana", f.p2))
	require.NoError(t, f.users.SubscribeMedicine(ctx, "ana", f.m1))

	got, err := matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.ElementsMatch(t, []match{{f.p1, f.m1, 10}, {f.p2, f.m1, 0}}, matches(got))

	require.NoError(t, f.users.SubscribeMedicine(ctx, "ana", f.m2))
	got, err = matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.ElementsMatch(t, []match{
		{f.p1, f.m1, 10}, {f.p1, f.m2, 4}, {f.p2, f.m1, 0}, {f.p2, f.m2, 8},
	}, matches(got))

	require.NoError(t, f.users.UnfavoritePharmacy(ctx, "ana", f.p1))
	got, err = matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.ElementsMatch(t, []match{{f.p2, f.m1, 0}, {f.p2, f.m2, 8}}, matches(got))
}

func TestFindNotifications_NoFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	matcher := NewNotificationMatcher(f.store)

	_, err := f.users.RegisterUser(ctx, "ana")
	require.NoError(t, err)
	require.NoError(t, f.users.SubscribeMedicine(ctx, "ana", f.m1))

	got, err := matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindNotifications_NoSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	matcher := NewNotificationMatcher(f.store)

	_, err := f.users.RegisterUser(ctx, "ana")
	require.NoError(t, err)
	require.NoError(t, f.users.FavoritePharmacy(ctx, "ana", f.p1))

	got, err := matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindNotifications_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := NewNotificationMatcher(f.store).FindNotifications(context.Background(), "ghost")
	assert.True(t, domain.IsNotFound(err))
}

func TestMatch_SkipsDanglingFavorite(t *testing.T) {
	f := newFixture(t)
	u := domain.NewUser("ana")
	u.AddFavorite("gone")
	u.AddFavorite(f.p1)
	u.Subscribe(f.m1)

	got, err := NewNotificationMatcher(f.store).Match(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, []match{{f.p1, f.m1, 10}}, matches(got))
}

func TestMatch_CanceledContext(t *testing.T) {
	f := newFixture(t)
	u := domain.NewUser("ana")
	u.AddFavorite(f.p1)
	u.Subscribe(f.m1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNotificationMatcher(f.store).Match(ctx, u)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindNotifications_ConcurrentWithMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	matcher := NewNotificationMatcher(f.store)

	_, err := f.ledger.AddNewMedicineStock(ctx, f.p1, f.m2, 50)
	require.NoError(t, err)
	_, err = f.users.RegisterUser(ctx, "ana")
	require.NoError(t, err)
	require.NoError(t, f.users.FavoritePharmacy(ctx, "ana", f.p1))
	require.NoError(t, f.users.SubscribeMedicine(ctx, "ana", f.m1))
	require.NoError(t, f.users.SubscribeMedicine(ctx, "ana", f.m2))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.ledger.ChangeMedicineStock(ctx, f.p1, f.m2, domain.OperationRemove, 2)
			_, _ = f.ledger.ChangeMedicineStock(ctx, f.p1, f.m1, domain.OperationAdd, 1)
		}()
		go func() {
			defer wg.Done()
			got, err := matcher.FindNotifications(ctx, "ana")
			assert.NoError(t, err)
			assert.Len(t, got, 2)
			for _, n := range got {
				assert.GreaterOrEqual(t, n.MedicineStock.Stock, 0)
			}
		}()
	}
	wg.Wait()

	got, err := matcher.FindNotifications(ctx, "ana")
	require.NoError(t, err)
	assert.ElementsMatch(t, []match{{f.p1, f.m1, 30}, {f.p1, f.m2, 10}}, matches(got))
}
