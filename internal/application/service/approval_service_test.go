package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

// Mock repositories
type mockOrderRepo struct {
	createFunc     func(ctx context.Context, order *entity.PurchaseOrder) error
	getByIDFunc    func(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	listFunc       func(ctx context.Context) ([]*entity.PurchaseOrder, error)
	transitionFunc func(ctx context.Context, id string, status entity.Status) (bool, error)
}

func (m *mockOrderRepo) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, order)
	}
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return pendingOrder(id), nil
}

func (m *mockOrderRepo) List(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []*entity.PurchaseOrder{}, nil
}

func (m *mockOrderRepo) TransitionFromPending(ctx context.Context, id string, status entity.Status) (bool, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, status)
	}
	return true, nil
}

type mockEntryRepo struct {
	appendFunc func(ctx context.Context, orderID string, entry entity.ApprovalEntry) error
	listFunc   func(ctx context.Context, orderID string) ([]entity.ApprovalEntry, error)
}

func (m *mockEntryRepo) Append(ctx context.Context, orderID string, entry entity.ApprovalEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, orderID, entry)
	}
	return nil
}

func (m *mockEntryRepo) ListByOrderID(ctx context.Context, orderID string) ([]entity.ApprovalEntry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, orderID)
	}
	return []entity.ApprovalEntry{}, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func pendingOrder(id string) *entity.PurchaseOrder {
	return entity.NewPurchaseOrder(id, entity.Submission{ItemName: "Desk", Quantity: 1, Cost: 300, VendorName: "Ikea"}, "u-req", time.Now())
}

var (
	reviewer  = &entity.User{ID: "u-rev", Email: "rev@example.com", Name: "Rita Reviewer", Role: entity.RoleReviewer}
	requester = &entity.User{ID: "u-req", Email: "req@example.com", Name: "Rob Requester", Role: entity.RoleRequester}
)

func TestApprovalService_Decide(t *testing.T) {
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	tests := []struct {
		name       string
		decision   entity.Decision
		actor      *entity.User
		orderRepo  *mockOrderRepo
		entryRepo  *mockEntryRepo
		wantKind   error
		wantStatus entity.Status
	}{
		{
			name:       "reviewer approves pending order",
			decision:   entity.Decision{Status: entity.StatusApproved, Comment: "ok"},
			actor:      reviewer,
			orderRepo:  &mockOrderRepo{},
			entryRepo:  &mockEntryRepo{},
			wantStatus: entity.StatusApproved,
		},
		{
			name:       "reviewer rejects pending order",
			decision:   entity.Decision{Status: entity.StatusRejected},
			actor:      reviewer,
			orderRepo:  &mockOrderRepo{},
			entryRepo:  &mockEntryRepo{},
			wantStatus: entity.StatusRejected,
		},
		{
			name:      "requester is forbidden",
			decision:  entity.Decision{Status: entity.StatusApproved},
			actor:     requester,
			orderRepo: &mockOrderRepo{},
			entryRepo: &mockEntryRepo{},
			wantKind:  port.ErrForbidden,
		},
		{
			name:      "unknown outcome is a bad request",
			decision:  entity.Decision{Status: entity.StatusCompleted},
			actor:     reviewer,
			orderRepo: &mockOrderRepo{},
			entryRepo: &mockEntryRepo{},
			wantKind:  port.ErrBadRequest,
		},
		{
			name:     "missing order",
			decision: entity.Decision{Status: entity.StatusApproved},
			actor:    reviewer,
			orderRepo: &mockOrderRepo{getByIDFunc: func(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
				return nil, nil
			}},
			entryRepo: &mockEntryRepo{},
			wantKind:  port.ErrNotFound,
		},
		{
			name:     "already decided order conflicts",
			decision: entity.Decision{Status: entity.StatusApproved},
			actor:    reviewer,
			orderRepo: &mockOrderRepo{getByIDFunc: func(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
				o := pendingOrder(id)
				_ = o.AppendDecision(entity.ApprovalEntry{Status: entity.StatusRejected, Reviewer: "Other"})
				return o, nil
			}},
			entryRepo: &mockEntryRepo{},
			wantKind:  port.ErrConflict,
		},
		{
			name:     "lost conditional update conflicts",
			decision: entity.Decision{Status: entity.StatusApproved},
			actor:    reviewer,
			orderRepo: &mockOrderRepo{transitionFunc: func(ctx context.Context, id string, status entity.Status) (bool, error) {
				return false, nil
			}},
			entryRepo: &mockEntryRepo{appendFunc: func(ctx context.Context, orderID string, entry entity.ApprovalEntry) error {
				t.Error("entry must not be appended when the update was lost")
				return nil
			}},
			wantKind: port.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewApprovalService(tt.orderRepo, tt.entryRepo, &mockTxManager{}, &mockLogger{})
			svc.(*approvalServiceImpl).now = func() time.Time { return fixed }

			order, err := svc.Decide(context.Background(), "po-1", tt.decision, tt.actor)

			if tt.wantKind != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantKind)
				var svcErr *Error
				assert.ErrorAs(t, err, &svcErr)
				assert.Nil(t, order)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, order.Status)
			require.Len(t, order.ApprovalHistory, 1)
			assert.Equal(t, entity.ApprovalEntry{
				Status:   tt.wantStatus,
				Reviewer: "Rita Reviewer",
				Comment:  tt.decision.Comment,
				Date:     fixed,
			}, order.ApprovalHistory[0])
		})
	}
}

func TestApprovalService_Decide_RunsInTransaction(t *testing.T) {
	var inTx bool
	var appended []entity.ApprovalEntry

	txManager := &mockTxManager{withTransactionFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
		inTx = true
		defer func() { inTx = false }()
		return fn(ctx)
	}}
	orderRepo := &mockOrderRepo{transitionFunc: func(ctx context.Context, id string, status entity.Status) (bool, error) {
		assert.True(t, inTx, "status update must run inside the transaction")
		assert.Equal(t, entity.StatusApproved, status)
		return true, nil
	}}
	entryRepo := &mockEntryRepo{appendFunc: func(ctx context.Context, orderID string, entry entity.ApprovalEntry) error {
		assert.True(t, inTx, "ledger append must run inside the transaction")
		appended = append(appended, entry)
		return nil
	}}

	svc := NewApprovalService(orderRepo, entryRepo, txManager, &mockLogger{})
	_, err := svc.Decide(context.Background(), "po-1", entity.Decision{Status: entity.StatusApproved}, reviewer)

	require.NoError(t, err)
	assert.Len(t, appended, 1)
}

func TestApprovalService_Decide_RepositoryFailure(t *testing.T) {
	dbErr := errors.New("database is locked")
	entryRepo := &mockEntryRepo{appendFunc: func(ctx context.Context, orderID string, entry entity.ApprovalEntry) error {
		return dbErr
	}}

	svc := NewApprovalService(&mockOrderRepo{}, entryRepo, &mockTxManager{}, &mockLogger{})
	_, err := svc.Decide(context.Background(), "po-1", entity.Decision{Status: entity.StatusApproved}, reviewer)

	assert.ErrorIs(t, err, dbErr)
	var svcErr *Error
	assert.False(t, errors.As(err, &svcErr), "storage failures are not caller-facing")
}
