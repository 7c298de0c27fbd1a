package handler

import (
	"context"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newGRPCClient(t *testing.T, a *testApp) *StockServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterStockServiceServer(srv, NewGRPCHandler(a.ledger, a.matcher, nil))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewStockServiceClient(conn)
}

func TestGRPC_StockFlow(t *testing.T) {
	a := newTestApp(t)
	client := newGRPCClient(t, a)
	ctx := context.Background()

	p, err := client.AddPharmacy(ctx, &GRPCAddPharmacyRequest{Name: "Central"})
	require.NoError(t, err)
	m, err := client.AddMedicine(ctx, &GRPCAddMedicineRequest{Name: "Aspirin"})
	require.NoError(t, err)

	stock, err := client.AddMedicineStock(ctx, &GRPCAddMedicineStockRequest{PharmacyID: p.ID, MedicineID: m.ID, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(10), stock.Stock)

	stock, err = client.ChangeMedicineStock(ctx, &GRPCChangeMedicineStockRequest{
		PharmacyID: p.ID, MedicineID: m.ID, Operation: "REMOVE", Quantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(6), stock.Stock)

	page, err := client.ListAvailableMedicines(ctx, &GRPCListMedicinesRequest{PharmacyID: p.ID, Page: 1, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 6, page.Items[0].Stock)
}

func TestGRPC_StatusCodes(t *testing.T) {
	a := newTestApp(t)
	pharmacyID, medicineID := a.seed(t)
	client := newGRPCClient(t, a)
	ctx := context.Background()

	_, err := client.ChangeMedicineStock(ctx, &GRPCChangeMedicineStockRequest{
		PharmacyID: pharmacyID, MedicineID: medicineID, Operation: "REMOVE", Quantity: 15,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ChangeMedicineStock(ctx, &GRPCChangeMedicineStockRequest{
		PharmacyID: "nope", MedicineID: medicineID, Operation: "ADD", Quantity: 1,
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.FindNotifications(ctx, &GRPCFindNotificationsRequest{Username: "ghost"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err := client.FindNotifications(ctx, &GRPCFindNotificationsRequest{Username: "ana"})
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, 10, resp.Notifications[0].MedicineStock.Stock)
	assert.Equal(t, pharmacyID, resp.Notifications[0].Pharmacy.ID)
}

func TestGRPC_StockNeverWrapsOnTheWire(t *testing.T) {
	a := newTestApp(t)
	client := newGRPCClient(t, a)
	ctx := context.Background()

	p, err := client.AddPharmacy(ctx, &GRPCAddPharmacyRequest{Name: "Central"})
	require.NoError(t, err)
	m, err := client.AddMedicine(ctx, &GRPCAddMedicineRequest{Name: "Aspirin"})
	require.NoError(t, err)

	stock, err := client.AddMedicineStock(ctx, &GRPCAddMedicineStockRequest{
		PharmacyID: p.ID, MedicineID: m.ID, Quantity: math.MaxInt32,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), stock.Stock)

	_, err = client.ChangeMedicineStock(ctx, &GRPCChangeMedicineStockRequest{
		PharmacyID: p.ID, MedicineID: m.ID, Operation: "ADD", Quantity: math.MaxInt32,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	stock, err = client.ChangeMedicineStock(ctx, &GRPCChangeMedicineStockRequest{
		PharmacyID: p.ID, MedicineID: m.ID, Operation: "REMOVE", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32-1), stock.Stock)
}
