package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
	"github.com/rl1809/pharmastock/internal/port"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AvailableMedicine struct {
	Medicine domain.Medicine `json:"medicine"`
	Stock    int             `json:"stock"`
}

type MedicinePage struct {
	TotalCount int                 `json:"total_count"`
	Items      []AvailableMedicine `json:"items"`
}

// StockLedger creates pharmacies and medicines and mutates per-pharmacy
// stock. Mutations on one (pharmacy, medicine) key are serialised by the
// pharmacy's lock; different pharmacies proceed in parallel. Every applied
// mutation is offered to the movement queue without blocking the caller.
type StockLedger struct {
	store   port.DomainStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.RWMutex
	closed    bool
	movements chan domain.StockMovement
}

func NewStockLedger(store port.DomainStore, queueSize int, log *zap.Logger, m *metrics.Metrics) *StockLedger {
	return &StockLedger{
		store:     store,
		logger:    logger.Component(log, "stock_ledger"),
		metrics:   m,
		now:       time.Now,
		movements: make(chan domain.StockMovement, queueSize),
	}
}

func (l *StockLedger) AddPharmacy(ctx context.Context, name string, location domain.Location, pictureURL string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.NewValidationError("name", "must not be empty")
	}

	p := domain.NewPharmacy(uuid.NewString(), name, location, pictureURL)
	if err := l.store.PutPharmacy(ctx, p); err != nil {
		return "", fmt.Errorf("put pharmacy: %w", err)
	}

	l.logger.Info("pharmacy added", zap.String("pharmacy_id", p.ID), zap.String("name", name))
	return p.ID, nil
}

func (l *StockLedger) AddMedicine(ctx context.Context, name, description, boxPhotoURL string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.NewValidationError("name", "must not be empty")
	}

	m := domain.Medicine{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		BoxPhotoURL: boxPhotoURL,
	}
	if err := l.store.PutMedicine(ctx, m); err != nil {
		return "", fmt.Errorf("put medicine: %w", err)
	}

	l.logger.Info("medicine added", zap.String("medicine_id", m.ID), zap.String("name", name))
	return m.ID, nil
}

// AddNewMedicineStock registers medicineID at pharmacyID with quantity units.
// An existing entry is overwritten, not incremented, and the emitted movement
// carries OperationSet with the absolute count as its quantity.
func (l *StockLedger) AddNewMedicineStock(ctx context.Context, pharmacyID, medicineID string, quantity int) (int, error) {
	stock, err := l.addNewMedicineStock(ctx, pharmacyID, medicineID, quantity)
	l.metrics.ObserveMutation(string(domain.OperationSet), err)
	return stock, err
}

func (l *StockLedger) addNewMedicineStock(ctx context.Context, pharmacyID, medicineID string, quantity int) (int, error) {
	pharmacy, err := l.store.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		return 0, err
	}
	medicine, err := l.store.GetMedicine(ctx, medicineID)
	if err != nil {
		return 0, err
	}

	ms, err := pharmacy.InitStock(medicine, quantity, l.now())
	if err != nil {
		return 0, err
	}

	l.emit(domain.StockMovement{
		PharmacyID: pharmacyID,
		MedicineID: medicineID,
		Operation:  domain.OperationSet,
		Quantity:   quantity,
		Stock:      ms.Stock,
		Version:    ms.Version,
		At:         ms.UpdatedAt,
	})
	return ms.Stock, nil
}

// ChangeMedicineStock is the only way to mutate an existing stock entry.
func (l *StockLedger) ChangeMedicineStock(ctx context.Context, pharmacyID, medicineID string, op domain.Operation, quantity int) (int, error) {
	stock, err := l.changeMedicineStock(ctx, pharmacyID, medicineID, op, quantity)
	l.metrics.ObserveMutation(mutationLabel(op), err)
	if err != nil {
		l.logger.Debug("stock change rejected",
			zap.String("pharmacy_id", pharmacyID),
			zap.String("medicine_id", medicineID),
			zap.String("operation", string(op)),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
	}
	return stock, err
}

func (l *StockLedger) changeMedicineStock(ctx context.Context, pharmacyID, medicineID string, op domain.Operation, quantity int) (int, error) {
	pharmacy, err := l.store.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		return 0, err
	}

	ms, err := pharmacy.ApplyStock(medicineID, op, quantity, l.now())
	if err != nil {
		return 0, err
	}

	l.emit(domain.StockMovement{
		PharmacyID: pharmacyID,
		MedicineID: medicineID,
		Operation:  op,
		Quantity:   quantity,
		Stock:      ms.Stock,
		Version:    ms.Version,
		At:         ms.UpdatedAt,
	})
	return ms.Stock, nil
}

// mutationLabel keeps the metric's label set bounded.
func mutationLabel(op domain.Operation) string {
	switch op {
	case domain.OperationAdd, domain.OperationRemove:
		return string(op)
	default:
		return "invalid"
	}
}

// ListAvailableMedicines pages through the entries with stock above zero,
// ordered by medicine name. Page numbers start at 1.
func (l *StockLedger) ListAvailableMedicines(ctx context.Context, pharmacyID string, page, size int) (MedicinePage, error) {
	pharmacy, err := l.store.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		return MedicinePage{}, err
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	available := make([]AvailableMedicine, 0)
	for _, ms := range pharmacy.Stocks() {
		if ms.Stock > 0 {
			available = append(available, AvailableMedicine{Medicine: ms.Medicine, Stock: ms.Stock})
		}
	}
	sort.Slice(available, func(i, j int) bool {
		a, b := available[i].Medicine, available[j].Medicine
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	result := MedicinePage{TotalCount: len(available), Items: []AvailableMedicine{}}
	start := (page - 1) * size
	if start >= len(available) {
		return result, nil
	}
	end := min(start+size, len(available))
	result.Items = available[start:end]
	return result, nil
}

func (l *StockLedger) GetPharmacy(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error) {
	return l.store.GetPharmacy(ctx, pharmacyID)
}

func (l *StockLedger) ListPharmacies(ctx context.Context) ([]*domain.Pharmacy, error) {
	return l.store.ListPharmacies(ctx)
}

func (l *StockLedger) GetMedicine(ctx context.Context, medicineID string) (domain.Medicine, error) {
	return l.store.GetMedicine(ctx, medicineID)
}

// RatePharmacy records a 1-5 score from a registered user.
func (l *StockLedger) RatePharmacy(ctx context.Context, pharmacyID, username string, score int, comment string) error {
	pharmacy, err := l.store.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		return err
	}
	if _, err := l.store.GetUser(ctx, username); err != nil {
		return err
	}
	return pharmacy.Rate(domain.Rating{
		Username: username,
		Score:    score,
		Comment:  comment,
		At:       l.now(),
	})
}

func (l *StockLedger) emit(m domain.StockMovement) {
	m.ID = uuid.NewString()

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.movements <- m:
	default:
		l.metrics.IncMovementsDropped()
		l.logger.Warn("movement queue full, dropping movement",
			zap.String("pharmacy_id", m.PharmacyID),
			zap.String("medicine_id", m.MedicineID),
			zap.Int("stock", m.Stock),
		)
	}
}

func (l *StockLedger) GetMovementQueue() <-chan domain.StockMovement {
	return l.movements
}

// Close stops emitting movements and closes the queue. Mutations keep
// working after Close.
func (l *StockLedger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.movements)
}
