package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/core/service"
)

const stockServiceName = "pharmastock.StockService"

type GRPCAddPharmacyRequest struct {
	Name       string          `json:"name"`
	Location   domain.Location `json:"location"`
	PictureURL string          `json:"picture_url"`
}

type GRPCAddMedicineRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BoxPhotoURL string `json:"box_photo_url"`
}

type GRPCIDResponse struct {
	ID string `json:"id"`
}

type GRPCAddMedicineStockRequest struct {
	PharmacyID string `json:"pharmacy_id"`
	MedicineID string `json:"medicine_id"`
	Quantity   int32  `json:"quantity"`
}

type GRPCChangeMedicineStockRequest struct {
	PharmacyID string `json:"pharmacy_id"`
	MedicineID string `json:"medicine_id"`
	Operation  string `json:"operation"`
	Quantity   int32  `json:"quantity"`
}

type GRPCStockResponse struct {
	Stock int32 `json:"stock"`
}

type GRPCListMedicinesRequest struct {
	PharmacyID string `json:"pharmacy_id"`
	Page       int32  `json:"page"`
	Size       int32  `json:"size"`
}

type GRPCFindNotificationsRequest struct {
	Username string `json:"username"`
}

type GRPCFindNotificationsResponse struct {
	Notifications []domain.MedicineNotification `json:"notifications"`
}

// StockServiceServer is the server side of pharmastock.StockService.
type StockServiceServer interface {
	AddPharmacy(context.Context, *GRPCAddPharmacyRequest) (*GRPCIDResponse, error)
	AddMedicine(context.Context, *GRPCAddMedicineRequest) (*GRPCIDResponse, error)
	AddMedicineStock(context.Context, *GRPCAddMedicineStockRequest) (*GRPCStockResponse, error)
	ChangeMedicineStock(context.Context, *GRPCChangeMedicineStockRequest) (*GRPCStockResponse, error)
	ListAvailableMedicines(context.Context, *GRPCListMedicinesRequest) (*service.MedicinePage, error)
	FindNotifications(context.Context, *GRPCFindNotificationsRequest) (*GRPCFindNotificationsResponse, error)
}

func unaryHandler[Req, Resp any](method string, call func(StockServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StockServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + stockServiceName + "/" + method,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(StockServiceServer), ctx, req.(*Req))
		})
	}
}

var StockServiceDesc = grpc.ServiceDesc{
	ServiceName: stockServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddPharmacy", Handler: unaryHandler("AddPharmacy", StockServiceServer.AddPharmacy)},
		{MethodName: "AddMedicine", Handler: unaryHandler("AddMedicine", StockServiceServer.AddMedicine)},
		{MethodName: "AddMedicineStock", Handler: unaryHandler("AddMedicineStock", StockServiceServer.AddMedicineStock)},
		{MethodName: "ChangeMedicineStock", Handler: unaryHandler("ChangeMedicineStock", StockServiceServer.ChangeMedicineStock)},
		{MethodName: "ListAvailableMedicines", Handler: unaryHandler("ListAvailableMedicines", StockServiceServer.ListAvailableMedicines)},
		{MethodName: "FindNotifications", Handler: unaryHandler("FindNotifications", StockServiceServer.FindNotifications)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pharmastock/stock_service",
}

func RegisterStockServiceServer(s grpc.ServiceRegistrar, srv StockServiceServer) {
	s.RegisterService(&StockServiceDesc, srv)
}

// StockServiceClient calls pharmastock.StockService with the JSON codec.
type StockServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStockServiceClient(cc grpc.ClientConnInterface) *StockServiceClient {
	return &StockServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := cc.Invoke(ctx, "/"+stockServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StockServiceClient) AddPharmacy(ctx context.Context, in *GRPCAddPharmacyRequest, opts ...grpc.CallOption) (*GRPCIDResponse, error) {
	return invoke[GRPCIDResponse](ctx, c.cc, "AddPharmacy", in, opts...)
}

func (c *StockServiceClient) AddMedicine(ctx context.Context, in *GRPCAddMedicineRequest, opts ...grpc.CallOption) (*GRPCIDResponse, error) {
	return invoke[GRPCIDResponse](ctx, c.cc, "AddMedicine", in, opts...)
}

func (c *StockServiceClient) AddMedicineStock(ctx context.Context, in *GRPCAddMedicineStockRequest, opts ...grpc.CallOption) (*GRPCStockResponse, error) {
	return invoke[GRPCStockResponse](ctx, c.cc, "AddMedicineStock", in, opts...)
}

func (c *StockServiceClient) ChangeMedicineStock(ctx context.Context, in *GRPCChangeMedicineStockRequest, opts ...grpc.CallOption) (*GRPCStockResponse, error) {
	return invoke[GRPCStockResponse](ctx, c.cc, "ChangeMedicineStock", in, opts...)
}

func (c *StockServiceClient) ListAvailableMedicines(ctx context.Context, in *GRPCListMedicinesRequest, opts ...grpc.CallOption) (*service.MedicinePage, error) {
	return invoke[service.MedicinePage](ctx, c.cc, "ListAvailableMedicines", in, opts...)
}

func (c *StockServiceClient) FindNotifications(ctx context.Context, in *GRPCFindNotificationsRequest, opts ...grpc.CallOption) (*GRPCFindNotificationsResponse, error) {
	return invoke[GRPCFindNotificationsResponse](ctx, c.cc, "FindNotifications", in, opts...)
}
