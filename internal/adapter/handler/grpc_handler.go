package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/core/service"
	"github.com/rl1809/pharmastock/internal/logger"
)

// Stock counts are bounded by domain.MaxStock, so they always fit the int32
// wire fields.
type GRPCHandler struct {
	ledger  *service.StockLedger
	matcher *service.NotificationMatcher
	logger  *zap.Logger
}

func NewGRPCHandler(ledger *service.StockLedger, matcher *service.NotificationMatcher, log *zap.Logger) *GRPCHandler {
	return &GRPCHandler{
		ledger:  ledger,
		matcher: matcher,
		logger:  logger.Component(log, "grpc_handler"),
	}
}

func (h *GRPCHandler) AddPharmacy(ctx context.Context, req *GRPCAddPharmacyRequest) (*GRPCIDResponse, error) {
	id, err := h.ledger.AddPharmacy(ctx, req.Name, req.Location, req.PictureURL)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &GRPCIDResponse{ID: id}, nil
}

func (h *GRPCHandler) AddMedicine(ctx context.Context, req *GRPCAddMedicineRequest) (*GRPCIDResponse, error) {
	id, err := h.ledger.AddMedicine(ctx, req.Name, req.Description, req.BoxPhotoURL)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &GRPCIDResponse{ID: id}, nil
}

func (h *GRPCHandler) AddMedicineStock(ctx context.Context, req *GRPCAddMedicineStockRequest) (*GRPCStockResponse, error) {
	stock, err := h.ledger.AddNewMedicineStock(ctx, req.PharmacyID, req.MedicineID, int(req.Quantity))
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &GRPCStockResponse{Stock: int32(stock)}, nil
}

func (h *GRPCHandler) ChangeMedicineStock(ctx context.Context, req *GRPCChangeMedicineStockRequest) (*GRPCStockResponse, error) {
	op, err := domain.ParseOperation(req.Operation)
	if err != nil {
		return nil, h.toStatus(err)
	}
	stock, err := h.ledger.ChangeMedicineStock(ctx, req.PharmacyID, req.MedicineID, op, int(req.Quantity))
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &GRPCStockResponse{Stock: int32(stock)}, nil
}

func (h *GRPCHandler) ListAvailableMedicines(ctx context.Context, req *GRPCListMedicinesRequest) (*service.MedicinePage, error) {
	page, err := h.ledger.ListAvailableMedicines(ctx, req.PharmacyID, int(req.Page), int(req.Size))
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &page, nil
}

func (h *GRPCHandler) FindNotifications(ctx context.Context, req *GRPCFindNotificationsRequest) (*GRPCFindNotificationsResponse, error) {
	notifications, err := h.matcher.FindNotifications(ctx, req.Username)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &GRPCFindNotificationsResponse{Notifications: notifications}, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case domain.IsInvalidArgument(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsAlreadyExists(err):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		h.logger.Error("rpc failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
