package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/infrastructure/persistence/sqlite"
)

// ApprovalEntryRepository implements port.ApprovalEntryRepository
type ApprovalEntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalEntryRepository creates a new approval ledger repository
func NewApprovalEntryRepository(db *sql.DB, logger *zap.Logger) *ApprovalEntryRepository {
	return &ApprovalEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Append adds a decision to an order's ledger. A second decision for the
// same order violates the unique index and is reported as port.ErrConflict.
func (r *ApprovalEntryRepository) Append(ctx context.Context, orderID string, entry entity.ApprovalEntry) error {
	query := `
		INSERT INTO approval_entries (order_id, status, reviewer, comment, decided_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		orderID,
		string(entry.Status),
		entry.Reviewer,
		entry.Comment,
		formatTime(entry.Date),
	)
	if err != nil {
		r.logger.Error("Failed to append approval entry",
			zap.String("order_id", orderID),
			zap.String("status", string(entry.Status)),
			zap.Error(err))
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to append approval entry: %w", port.ErrConflict)
		}
		return fmt.Errorf("failed to append approval entry: %w", err)
	}

	return nil
}

// ListByOrderID returns an order's ledger in the order it was written
func (r *ApprovalEntryRepository) ListByOrderID(ctx context.Context, orderID string) ([]entity.ApprovalEntry, error) {
	query := `
		SELECT order_id, status, reviewer, comment, decided_at
		FROM approval_entries
		WHERE order_id = ?
		ORDER BY id
	`

	byOrder, err := r.query(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to list approval entries",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	if entries, ok := byOrder[orderID]; ok {
		return entries, nil
	}
	return []entity.ApprovalEntry{}, nil
}

func (r *ApprovalEntryRepository) listAll(ctx context.Context) (map[string][]entity.ApprovalEntry, error) {
	query := `
		SELECT order_id, status, reviewer, comment, decided_at
		FROM approval_entries
		ORDER BY id
	`

	byOrder, err := r.query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list approval entries", zap.Error(err))
		return nil, err
	}
	return byOrder, nil
}

func (r *ApprovalEntryRepository) query(ctx context.Context, query string, args ...interface{}) (map[string][]entity.ApprovalEntry, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval entries: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]entity.ApprovalEntry)
	for rows.Next() {
		var (
			orderID, status, decidedAt string
			e                          entity.ApprovalEntry
		)
		if err := rows.Scan(&orderID, &status, &e.Reviewer, &e.Comment, &decidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval entry: %w", err)
		}
		e.Status = entity.Status(status)
		if e.Date, err = parseTime(decidedAt); err != nil {
			return nil, fmt.Errorf("invalid decided_at %q: %w", decidedAt, err)
		}
		byOrder[orderID] = append(byOrder[orderID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approval entries: %w", err)
	}

	return byOrder, nil
}

var _ port.ApprovalEntryRepository = (*ApprovalEntryRepository)(nil)
