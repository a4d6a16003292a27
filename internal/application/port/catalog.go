package port

import (
	"context"

	"github.com/garyjia/po-approval/internal/domain/entity"
)

// OrderCatalog is the client view of the system of record for purchase orders
type OrderCatalog interface {
	List(ctx context.Context) ([]*entity.PurchaseOrder, error)
	Get(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	Create(ctx context.Context, sub entity.Submission) (*entity.PurchaseOrder, error)
	Approve(ctx context.Context, id string, decision entity.Decision) (*entity.PurchaseOrder, error)
	History(ctx context.Context, id string) ([]entity.ApprovalEntry, error)
}
