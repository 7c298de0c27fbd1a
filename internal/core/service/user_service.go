package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/port"
)

// UserService manages users and their favorite/subscription references.
type UserService struct {
	store  port.DomainStore
	logger *zap.Logger

	// registerMu makes the get-then-put in RegisterUser atomic.
	registerMu sync.Mutex
}

func NewUserService(store port.DomainStore, log *zap.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger.Component(log, "user_service"),
	}
}

func (s *UserService) RegisterUser(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "must not be empty")
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if _, err := s.store.GetUser(ctx, username); err == nil {
		return nil, domain.NewAlreadyExistsError("user", username)
	} else if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	u := domain.NewUser(username)
	if err := s.store.PutUser(ctx, u); err != nil {
		return nil, fmt.Errorf("put user: %w", err)
	}
	s.logger.Info("user registered", zap.String("username", username))
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, username string) (*domain.User, error) {
	return s.store.GetUser(ctx, username)
}

func (s *UserService) FavoritePharmacy(ctx context.Context, username, pharmacyID string) error {
	u, err := s.store.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.store.GetPharmacy(ctx, pharmacyID); err != nil {
		return err
	}
	u.AddFavorite(pharmacyID)
	return nil
}

func (s *UserService) UnfavoritePharmacy(ctx context.Context, username, pharmacyID string) error {
	u, err := s.store.GetUser(ctx, username)
	if err != nil {
		return err
	}
	u.RemoveFavorite(pharmacyID)
	return nil
}

func (s *UserService) SubscribeMedicine(ctx context.Context, username, medicineID string) error {
	u, err := s.store.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.store.GetMedicine(ctx, medicineID); err != nil {
		return err
	}
	u.Subscribe(medicineID)
	return nil
}

func (s *UserService) UnsubscribeMedicine(ctx context.Context, username, medicineID string) error {
	u, err := s.store.GetUser(ctx, username)
	if err != nil {
		return err
	}
	u.Unsubscribe(medicineID)
	return nil
}
