package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/infrastructure/persistence/sqlite"
)

const orderColumns = `id, item_name, quantity, cost, vendor_name, description, status, submitted_by, created_at`

// OrderRepository implements port.OrderRepository
type OrderRepository struct {
	db      *sql.DB
	entries *ApprovalEntryRepository
	logger  *zap.Logger
}

// NewOrderRepository creates a new purchase order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		db:      db,
		entries: NewApprovalEntryRepository(db, logger),
		logger:  logger,
	}
}

// Create inserts a new order. Its ledger must be empty.
func (r *OrderRepository) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (
			id, item_name, quantity, cost, vendor_name, description,
			status, submitted_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	created := formatTime(order.CreatedAt)
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		order.ID,
		order.ItemName,
		order.Quantity,
		order.Cost,
		order.VendorName,
		order.Description,
		string(order.Status),
		order.SubmittedBy,
		created,
		created,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase order",
			zap.String("id", order.ID),
			zap.Error(err))
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create purchase order: %w", port.ErrConflict)
		}
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	return nil
}

// GetByID returns the order with its ledger, or nil when it does not exist
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = ?`

	order, err := scanOrder(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase order",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}

	history, err := r.entries.ListByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.ApprovalHistory = history

	return order, nil
}

// List returns all orders, newest first, each with its ledger
func (r *OrderRepository) List(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders ORDER BY created_at DESC, id`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list purchase orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := []*entity.PurchaseOrder{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase orders: %w", err)
	}

	byOrder, err := r.entries.listAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if h, ok := byOrder[o.ID]; ok {
			o.ApprovalHistory = h
		}
	}

	return orders, nil
}

// TransitionFromPending updates the status only while the row is still pending
func (r *OrderRepository) TransitionFromPending(ctx context.Context, id string, status entity.Status) (bool, error) {
	query := `
		UPDATE purchase_orders
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		string(status), formatTime(time.Now()), id, string(entity.StatusPending))
	if err != nil {
		r.logger.Error("Failed to update purchase order status",
			zap.String("id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update purchase order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*entity.PurchaseOrder, error) {
	var (
		o         entity.PurchaseOrder
		status    string
		createdAt string
	)

	err := row.Scan(
		&o.ID,
		&o.ItemName,
		&o.Quantity,
		&o.Cost,
		&o.VendorName,
		&o.Description,
		&status,
		&o.SubmittedBy,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = entity.Status(status)
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	o.ApprovalHistory = []entity.ApprovalEntry{}

	return &o, nil
}

var _ port.OrderRepository = (*OrderRepository)(nil)
