package port

import (
	"context"

	"github.com/garyjia/po-approval/internal/domain/entity"
)

// OrderRepository defines persistence operations for PurchaseOrder.
// Getters return nil, nil when the row does not exist.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	List(ctx context.Context) ([]*entity.PurchaseOrder, error)

	// TransitionFromPending moves a pending order to status and reports
	// whether a row was updated. It never touches a decided order.
	TransitionFromPending(ctx context.Context, id string, status entity.Status) (bool, error)
}

// ApprovalEntryRepository defines persistence operations for the append-only ledger
type ApprovalEntryRepository interface {
	Append(ctx context.Context, orderID string, entry entity.ApprovalEntry) error
	ListByOrderID(ctx context.Context, orderID string) ([]entity.ApprovalEntry, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
