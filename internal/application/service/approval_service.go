package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ApprovalService records reviewer decisions on purchase orders
type ApprovalService interface {
	Decide(ctx context.Context, orderID string, decision entity.Decision, reviewer *entity.User) (*entity.PurchaseOrder, error)
}

type approvalServiceImpl struct {
	orderRepo port.OrderRepository
	entryRepo port.ApprovalEntryRepository
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	orderRepo port.OrderRepository,
	entryRepo port.ApprovalEntryRepository,
	txManager port.TransactionManager,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		orderRepo: orderRepo,
		entryRepo: entryRepo,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// Decide appends one decision and moves the order out of pending.
// The status change is a conditional update, so of two concurrent reviewers
// exactly one succeeds and the other gets a conflict.
func (s *approvalServiceImpl) Decide(ctx context.Context, orderID string, decision entity.Decision, reviewer *entity.User) (*entity.PurchaseOrder, error) {
	trigger, ok := workflow.TriggerFor(decision.Status)
	if !ok {
		return nil, fail(port.ErrBadRequest, "Status must be approved or rejected")
	}

	isReviewer := func(context.Context) bool {
		return reviewer != nil && reviewer.Role == entity.RoleReviewer
	}

	var result *entity.PurchaseOrder
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if order == nil {
			return fail(port.ErrNotFound, "Purchase order not found")
		}

		machine := workflow.NewOrderMachine(order.Status, isReviewer)
		if err := machine.Fire(txCtx, trigger); err != nil {
			if errors.Is(err, workflow.ErrGuardFailed) {
				return fail(port.ErrForbidden, "Only reviewers can approve or reject purchase orders")
			}
			return fail(port.ErrConflict, "Purchase order is already %s", order.Status)
		}

		entry := entity.ApprovalEntry{
			Status:   machine.State(),
			Reviewer: displayName(reviewer),
			Comment:  decision.Comment,
			Date:     s.now().UTC(),
		}

		updated, err := s.orderRepo.TransitionFromPending(txCtx, orderID, entry.Status)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !updated {
			return fail(port.ErrConflict, "Purchase order is no longer pending")
		}

		if err := s.entryRepo.Append(txCtx, orderID, entry); err != nil {
			return fmt.Errorf("append approval entry: %w", err)
		}

		if err := order.AppendDecision(entry); err != nil {
			return fmt.Errorf("apply decision: %w", err)
		}
		result = order
		return nil
	})

	if err != nil {
		var svcErr *Error
		if !errors.As(err, &svcErr) {
			s.logger.Error("Failed to decide purchase order", "error", err, "order_id", orderID)
		}
		return nil, err
	}

	s.logger.Info("Purchase order decided", "order_id", orderID, "status", result.Status, "reviewer", reviewer.ID)
	return result, nil
}

func displayName(u *entity.User) string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
