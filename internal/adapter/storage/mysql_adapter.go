package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/port"
)

// Schema creates the journal tables when missing.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id          VARCHAR(36)  NOT NULL PRIMARY KEY,
		pharmacy_id VARCHAR(36)  NOT NULL,
		medicine_id VARCHAR(36)  NOT NULL,
		operation   VARCHAR(16)  NOT NULL,
		quantity    INT          NOT NULL,
		stock       INT          NOT NULL,
		version     BIGINT       NOT NULL,
		created_at  DATETIME(6)  NOT NULL,
		KEY idx_movements_key (pharmacy_id, medicine_id)
	)`,
	`CREATE TABLE IF NOT EXISTS medicine_stock (
		pharmacy_id VARCHAR(36)  NOT NULL,
		medicine_id VARCHAR(36)  NOT NULL,
		stock       INT          NOT NULL,
		version     BIGINT       NOT NULL,
		updated_at  DATETIME(6)  NOT NULL,
		PRIMARY KEY (pharmacy_id, medicine_id)
	)`,
}

var (
	_ port.DatabaseRepository = (*MySQLAdapter)(nil)
	_ port.StockSink          = (*MySQLAdapter)(nil)
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Name() string { return "mysql" }

func (m *MySQLAdapter) Consume(ctx context.Context, movement domain.StockMovement) error {
	return m.RecordMovement(ctx, movement)
}

// RecordMovement appends the movement and moves the snapshot row forward
// only when the movement's version is newer than the stored one.
func (m *MySQLAdapter) RecordMovement(ctx context.Context, mv domain.StockMovement) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, pharmacy_id, medicine_id, operation, quantity, stock, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mv.ID, mv.PharmacyID, mv.MedicineID, string(mv.Operation), mv.Quantity, mv.Stock, mv.Version, mv.At,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO medicine_stock (pharmacy_id, medicine_id, stock, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			stock = IF(VALUES(version) > version, VALUES(stock), stock),
			updated_at = IF(VALUES(version) > version, VALUES(updated_at), updated_at),
			version = GREATEST(version, VALUES(version))`,
		mv.PharmacyID, mv.MedicineID, mv.Stock, mv.Version, mv.At,
	)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetStock(ctx context.Context, pharmacyID, medicineID string) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx, `
		SELECT stock FROM medicine_stock WHERE pharmacy_id = ? AND medicine_id = ?`,
		pharmacyID, medicineID,
	).Scan(&stock)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewNotFoundError("journaled stock", pharmacyID+"/"+medicineID)
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return stock, nil
}
