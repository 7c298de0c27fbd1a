package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/pharmastock/internal/adapter/memory"
	"github.com/rl1809/pharmastock/internal/core/domain"
)

type pushed struct {
	username string
	msg      any
}

type mockPusher struct {
	mu        sync.Mutex
	connected map[string]bool
	pushes    []pushed
	err       error
	failFor   map[string]error
}

func newMockPusher(connected ...string) *mockPusher {
	p := &mockPusher{connected: make(map[string]bool)}
	for _, u := range connected {
		p.connected[u] = true
	}
	return p
}

func (p *mockPusher) Connected(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected[username]
}

func (p *mockPusher) Push(ctx context.Context, username string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if err := p.failFor[username]; err != nil {
		return err
	}
	p.pushes = append(p.pushes, pushed{username: username, msg: v})
	return nil
}

func (p *mockPusher) Pushes() []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pushed, len(p.pushes))
	copy(out, p.pushes)
	return out
}

type mockSink struct {
	name string
	err  error

	mu       sync.Mutex
	consumed []domain.StockMovement
}

func (s *mockSink) Name() string { return s.name }

func (s *mockSink) Consume(ctx context.Context, m domain.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.consumed = append(s.consumed, m)
	return nil
}

func (s *mockSink) Consumed() []domain.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockMovement, len(s.consumed))
	copy(out, s.consumed)
	return out
}

type mockObserver struct {
	mu   sync.Mutex
	seen []domain.StockMovement
}

func (o *mockObserver) StockChanged(ctx context.Context, m domain.StockMovement) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, m)
	return 1, nil
}

var errSinkDown = errors.New("sink down")

// fixture is a small catalogue: pharmacy P1 stocks M1 at 10.
type fixture struct {
	store  *memory.Store
	ledger *StockLedger
	users  *UserService
	p1, p2 string
	m1, m2 string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	ledger := NewStockLedger(store, 1000, nil, nil)
	t.Cleanup(ledger.Close)

	f := &fixture{store: store, ledger: ledger, users: NewUserService(store, nil)}

	var err error
	f.p1, err = ledger.AddPharmacy(ctx, "Central", domain.Location{Lat: 45.81, Lon: 15.98}, "http://img/p1.png")
	require.NoError(t, err)
	f.p2, err = ledger.AddPharmacy(ctx, "Harbour", domain.Location{Lat: 43.50, Lon: 16.44}, "http://img/p2.png")
	require.NoError(t, err)
	f.m1, err = ledger.AddMedicine(ctx, "Aspirin", "acetylsalicylic acid 500mg", "http://img/m1.png")
	require.NoError(t, err)
	f.m2, err = ledger.AddMedicine(ctx, "Ibuprofen", "400mg", "http://img/m2.png")
	require.NoError(t, err)

	_, err = ledger.AddNewMedicineStock(ctx, f.p1, f.m1, 10)
	require.NoError(t, err)
	return f
}

func (f *fixture) stock(t *testing.T, pharmacyID, medicineID string) int {
	t.Helper()
	p, err := f.store.GetPharmacy(context.Background(), pharmacyID)
	require.NoError(t, err)
	ms, ok := p.StockOf(medicineID)
	require.True(t, ok)
	return ms.Stock
}
