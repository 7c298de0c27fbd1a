package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pharmastock/internal/core/domain"
)

func TestStore_NotFound(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.GetPharmacy(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))

	_, err = s.GetMedicine(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))

	_, err = s.GetUser(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_PutGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	p := domain.NewPharmacy("p1", "Central", domain.Location{Lat: 45.8, Lon: 15.9}, "http://img/p1.png")
	require.NoError(t, s.PutPharmacy(ctx, p))
	got, err := s.GetPharmacy(ctx, "p1")
	require.NoError(t, err)
	assert.Same(t, p, got)

	m := domain.Medicine{ID: "m1", Name: "Aspirin"}
	require.NoError(t, s.PutMedicine(ctx, m))
	gotM, err := s.GetMedicine(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, m, gotM)

	u := domain.NewUser("ana")
	require.NoError(t, s.PutUser(ctx, u))
	gotU, err := s.GetUser(ctx, "ana")
	require.NoError(t, err)
	assert.Same(t, u, gotU)
}

func TestStore_RejectsEmptyKeys(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.True(t, domain.IsInvalidArgument(s.PutPharmacy(ctx, nil)))
	assert.True(t, domain.IsInvalidArgument(s.PutMedicine(ctx, domain.Medicine{})))
	assert.True(t, domain.IsInvalidArgument(s.PutUser(ctx, domain.NewUser(""))))
}

func TestStore_InPlaceMutationVisible(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	p := domain.NewPharmacy("p1", "Central", domain.Location{}, "")
	require.NoError(t, s.PutPharmacy(ctx, p))
	_, err := p.InitStock(domain.Medicine{ID: "m1"}, 3, time.Now())
	require.NoError(t, err)

	got, err := s.GetPharmacy(ctx, "p1")
	require.NoError(t, err)
	ms, ok := got.StockOf("m1")
	require.True(t, ok)
	assert.Equal(t, 3, ms.Stock)
}

func TestStore_ListOrdered(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.PutPharmacy(ctx, domain.NewPharmacy("b", "Zagreb", domain.Location{}, "")))
	require.NoError(t, s.PutPharmacy(ctx, domain.NewPharmacy("a", "Zagreb", domain.Location{}, "")))
	require.NoError(t, s.PutPharmacy(ctx, domain.NewPharmacy("c", "Osijek", domain.Location{}, "")))

	list, err := s.ListPharmacies(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	require.NoError(t, s.PutUser(ctx, domain.NewUser("zoe")))
	require.NoError(t, s.PutUser(ctx, domain.NewUser("ana")))
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ana", users[0].Username)
}

func TestStore_ConcurrentPutGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i)
			if err := s.PutMedicine(ctx, domain.Medicine{ID: id}); err != nil {
				t.Errorf("put %s: %v", id, err)
				return
			}
			if _, err := s.GetMedicine(ctx, id); err != nil {
				t.Errorf("get %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()
}
