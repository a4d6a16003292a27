package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

// OrderService creates and reads purchase orders
type OrderService interface {
	Create(ctx context.Context, sub entity.Submission, requester *entity.User) (*entity.PurchaseOrder, error)
	Get(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	List(ctx context.Context) ([]*entity.PurchaseOrder, error)
	History(ctx context.Context, id string) ([]entity.ApprovalEntry, error)
}

type orderServiceImpl struct {
	orderRepo port.OrderRepository
	entryRepo port.ApprovalEntryRepository
	logger    Logger
	now       func() time.Time
	newID     func() string
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo port.OrderRepository, entryRepo port.ApprovalEntryRepository, logger Logger) OrderService {
	return &orderServiceImpl{
		orderRepo: orderRepo,
		entryRepo: entryRepo,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create stores a pending order submitted by requester
func (s *orderServiceImpl) Create(ctx context.Context, sub entity.Submission, requester *entity.User) (*entity.PurchaseOrder, error) {
	if requester == nil {
		return nil, fail(port.ErrUnauthorized, "Authentication required")
	}

	order := entity.NewPurchaseOrder(s.newID(), sub, requester.ID, s.now().UTC())
	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create purchase order", "error", err, "submitted_by", requester.ID)
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("Purchase order created", "order_id", order.ID, "submitted_by", requester.ID)
	return order, nil
}

// Get returns one order with its approval history
func (s *orderServiceImpl) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get purchase order", "error", err, "order_id", id)
		return nil, err
	}
	if order == nil {
		return nil, fail(port.ErrNotFound, "Purchase order not found")
	}
	return order, nil
}

// List returns every order, newest first
func (s *orderServiceImpl) List(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list purchase orders", "error", err)
		return nil, err
	}
	return orders, nil
}

// History returns the approval ledger of an existing order
func (s *orderServiceImpl) History(ctx context.Context, id string) ([]entity.ApprovalEntry, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to list approval history", "error", err, "order_id", id)
		return nil, err
	}
	return entries, nil
}
