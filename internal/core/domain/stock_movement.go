package domain

import (
	"fmt"
	"strings"
	"time"
)

type Operation string

const (
	OperationAdd    Operation = "ADD"
	OperationRemove Operation = "REMOVE"
	// OperationSet marks an entry (re)initialised to an absolute count. It is
	// never accepted as a change operation.
	OperationSet Operation = "SET"
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToUpper(strings.TrimSpace(s))); op {
	case OperationAdd, OperationRemove:
		return op, nil
	default:
		return "", NewValidationError("operation", fmt.Sprintf("unsupported operation %q", s))
	}
}

// StockMovement records one applied stock mutation and the resulting count.
type StockMovement struct {
	ID         string    `json:"id"`
	PharmacyID string    `json:"pharmacy_id"`
	MedicineID string    `json:"medicine_id"`
	Operation  Operation `json:"operation"`
	Quantity   int       `json:"quantity"`
	Stock      int       `json:"stock"`
	Version    int64     `json:"version"`
	At         time.Time `json:"at"`
}
