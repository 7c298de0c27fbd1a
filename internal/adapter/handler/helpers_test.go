package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pharmastock/internal/adapter/channel"
	"github.com/rl1809/pharmastock/internal/adapter/memory"
	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/core/service"
)

type testApp struct {
	store      *memory.Store
	ledger     *service.StockLedger
	users      *service.UserService
	matcher    *service.NotificationMatcher
	hub        *channel.Hub
	dispatcher *service.NotificationDispatcher
	router     chi.Router
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memory.NewStore()
	a := &testApp{
		store:   store,
		ledger:  service.NewStockLedger(store, 1000, nil, nil),
		users:   service.NewUserService(store, nil),
		matcher: service.NewNotificationMatcher(store),
		hub:     channel.NewHub(nil, nil),
	}
	a.dispatcher = service.NewNotificationDispatcher(a.matcher, store, a.hub,
		service.DispatcherConfig{Workers: 2, QueueSize: 16, PushTimeout: time.Second}, nil, nil)
	a.dispatcher.Start(context.Background())
	t.Cleanup(func() {
		a.dispatcher.Stop()
		a.hub.CloseAll()
		a.ledger.Close()
	})

	a.router = chi.NewRouter()
	NewHTTPHandler(a.ledger, a.users, a.matcher, nil).Register(a.router)
	a.router.Handle("/ws/notifications", NewWSHandler(a.users, a.matcher, a.dispatcher, a.hub, time.Second, nil, nil))
	return a
}

// seed creates pharmacy "Central" stocking Aspirin at 10 and user ana who
// favors it and subscribes to Aspirin.
func (a *testApp) seed(t *testing.T) (pharmacyID, medicineID string) {
	t.Helper()
	ctx := context.Background()

	var err error
	pharmacyID, err = a.ledger.AddPharmacy(ctx, "Central", domain.Location{Lat: 45.8, Lon: 15.9}, "")
	require.NoError(t, err)
	medicineID, err = a.ledger.AddMedicine(ctx, "Aspirin", "500mg", "")
	require.NoError(t, err)
	_, err = a.ledger.AddNewMedicineStock(ctx, pharmacyID, medicineID, 10)
	require.NoError(t, err)

	_, err = a.users.RegisterUser(ctx, "ana")
	require.NoError(t, err)
	require.NoError(t, a.users.FavoritePharmacy(ctx, "ana", pharmacyID))
	require.NoError(t, a.users.SubscribeMedicine(ctx, "ana", medicineID))
	return pharmacyID, medicineID
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var _ http.Handler = (*WSHandler)(nil)
