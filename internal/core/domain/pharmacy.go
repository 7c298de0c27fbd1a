package domain

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// MaxStock bounds every stock count so it fits the INT columns and int32
// wire fields used downstream.
const MaxStock = math.MaxInt32

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MedicineStock is a value copy of one (pharmacy, medicine) stock entry.
type MedicineStock struct {
	Medicine  Medicine  `json:"medicine"`
	Stock     int       `json:"stock"`
	Operation Operation `json:"operation"`
	Version   int64     `json:"version"` // bumped on every mutation of the entry
	UpdatedAt time.Time `json:"updated_at"`
}

type Rating struct {
	Username string    `json:"username"`
	Score    int       `json:"score"`
	Comment  string    `json:"comment,omitempty"`
	At       time.Time `json:"at"`
}

// Pharmacy owns its stock entries. All access to them goes through mu so
// that a writer on one medicine and a reader of the whole collection never
// interleave.
type Pharmacy struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Location   Location `json:"location"`
	PictureURL string   `json:"picture_url"`

	mu      sync.RWMutex
	stocks  map[string]*MedicineStock
	ratings []Rating
}

func NewPharmacy(id, name string, location Location, pictureURL string) *Pharmacy {
	return &Pharmacy{
		ID:         id,
		Name:       name,
		Location:   location,
		PictureURL: pictureURL,
		stocks:     make(map[string]*MedicineStock),
	}
}

// InitStock creates the entry for medicine, or resets an existing one, to quantity.
func (p *Pharmacy) InitStock(medicine Medicine, quantity int, at time.Time) (MedicineStock, error) {
	if quantity < 0 {
		return MedicineStock{}, NewValidationError("quantity", "must not be negative")
	}
	if quantity > MaxStock {
		return MedicineStock{}, NewValidationError("quantity", fmt.Sprintf("must not exceed %d", MaxStock))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stocks == nil {
		p.stocks = make(map[string]*MedicineStock)
	}
	var version int64 = 1
	if prev, ok := p.stocks[medicine.ID]; ok {
		version = prev.Version + 1
	}
	ms := &MedicineStock{
		Medicine:  medicine,
		Stock:     quantity,
		Operation: OperationSet,
		Version:   version,
		UpdatedAt: at,
	}
	p.stocks[medicine.ID] = ms
	return *ms, nil
}

// ApplyStock adds or removes quantity units of medicineID. A REMOVE that
// would take the count below zero, or an ADD that would exceed MaxStock,
// leaves the entry untouched.
func (p *Pharmacy) ApplyStock(medicineID string, op Operation, quantity int, at time.Time) (MedicineStock, error) {
	if quantity < 0 {
		return MedicineStock{}, NewValidationError("quantity", "must not be negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ms, ok := p.stocks[medicineID]
	if !ok {
		return MedicineStock{}, NewNotFoundError("medicine stock", p.ID+"/"+medicineID)
	}

	switch op {
	case OperationAdd:
		if quantity > MaxStock-ms.Stock {
			return MedicineStock{}, NewValidationError("quantity",
				fmt.Sprintf("cannot add %d to %d, stock is capped at %d", quantity, ms.Stock, MaxStock))
		}
		ms.Stock += quantity
	case OperationRemove:
		if quantity > ms.Stock {
			return MedicineStock{}, NewValidationError("quantity",
				fmt.Sprintf("cannot remove %d, only %d in stock", quantity, ms.Stock))
		}
		ms.Stock -= quantity
	default:
		return MedicineStock{}, NewValidationError("operation", fmt.Sprintf("unsupported operation %q", op))
	}
	ms.Operation = op
	ms.Version++
	ms.UpdatedAt = at
	return *ms, nil
}

func (p *Pharmacy) StockOf(medicineID string) (MedicineStock, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ms, ok := p.stocks[medicineID]
	if !ok {
		return MedicineStock{}, false
	}
	return *ms, true
}

// Stocks returns a snapshot of every stock entry taken under one read lock.
func (p *Pharmacy) Stocks() []MedicineStock {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]MedicineStock, 0, len(p.stocks))
	for _, ms := range p.stocks {
		out = append(out, *ms)
	}
	return out
}

func (p *Pharmacy) Rate(r Rating) error {
	if r.Score < 1 || r.Score > 5 {
		return NewValidationError("score", "must be between 1 and 5")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ratings = append(p.ratings, r)
	return nil
}

func (p *Pharmacy) Ratings() []Rating {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Rating, len(p.ratings))
	copy(out, p.ratings)
	return out
}

// AverageRating returns 0 when the pharmacy has no ratings.
func (p *Pharmacy) AverageRating() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range p.ratings {
		total += r.Score
	}
	return float64(total) / float64(len(p.ratings))
}
