package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/garyjia/po-approval/internal/application/dispatcher"
	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/application/session"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/domain/event"
	"github.com/garyjia/po-approval/internal/domain/workflow"
)

const defaultFetchWorkers = 4

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Lifecycle drives purchase orders from submission to decision against the
// catalog and keeps a local copy of every order it has seen.
type Lifecycle struct {
	catalog    port.OrderCatalog
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
	workers    int

	mu    sync.RWMutex
	cache map[string]*entity.PurchaseOrder
}

// Option configures a Lifecycle
type Option func(*Lifecycle)

// WithDispatcher publishes order events on d
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(l *Lifecycle) {
		l.dispatcher = d
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides time.Now for ledger dates
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithFetchWorkers bounds the parallelism of FetchMany
func WithFetchWorkers(n int) Option {
	return func(l *Lifecycle) {
		if n > 0 {
			l.workers = n
		}
	}
}

// NewLifecycle creates a lifecycle backed by catalog
func NewLifecycle(catalog port.OrderCatalog, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		catalog: catalog,
		logger:  nopLogger{},
		now:     time.Now,
		workers: defaultFetchWorkers,
		cache:   make(map[string]*entity.PurchaseOrder),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit validates the submission and creates the order in the catalog.
// Invalid input returns a *ValidationError and never reaches the network.
func (l *Lifecycle) Submit(ctx context.Context, sub entity.Submission) (*entity.PurchaseOrder, error) {
	if err := ValidateSubmission(&sub); err != nil {
		return nil, err
	}

	created, err := l.catalog.Create(ctx, sub)
	if err != nil {
		l.logger.Error("Failed to submit purchase order", "item", sub.ItemName, "error", err)
		return nil, &WriteError{Kind: ErrSubmitFailed, Message: port.MessageOf(err, "Failed to create purchase order"), Err: err}
	}
	if created == nil {
		return nil, &WriteError{Kind: ErrSubmitFailed, Message: "empty reply from catalog"}
	}

	l.remember(created)
	l.logger.Info("Purchase order submitted", "order_id", created.ID, "item", created.ItemName)
	l.publish(ctx, event.NewEvent(event.TypeOrderSubmitted, created.ID, map[string]interface{}{
		"item_name":    created.ItemName,
		"submitted_by": created.SubmittedBy,
	}))

	return created.Clone(), nil
}

// FetchOne reads an order from the catalog and refreshes the local copy
func (l *Lifecycle) FetchOne(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	order, err := l.catalog.Get(ctx, id)
	if err != nil {
		return nil, &FetchError{ID: id, Message: port.MessageOf(err, "Failed to fetch purchase order"), Err: err}
	}
	if order == nil {
		return nil, &FetchError{ID: id, Message: "Purchase order not found", Err: port.ErrNotFound}
	}

	l.remember(order)
	return order.Clone(), nil
}

// FetchAll lists every order visible to the session
func (l *Lifecycle) FetchAll(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	orders, err := l.catalog.List(ctx)
	if err != nil {
		return nil, &FetchError{Message: port.MessageOf(err, "Failed to fetch purchase orders"), Err: err}
	}

	out := make([]*entity.PurchaseOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		l.remember(o)
		out = append(out, o.Clone())
	}
	return out, nil
}

// FetchMany reads several orders in parallel. The result keeps the order of ids;
// the first failure cancels the remaining reads.
func (l *Lifecycle) FetchMany(ctx context.Context, ids []string) ([]*entity.PurchaseOrder, error) {
	out := make([]*entity.PurchaseOrder, len(ids))

	p := pool.New().
		WithMaxGoroutines(l.workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i, id := range ids {
		i, id := i, id
		p.Go(func(ctx context.Context) error {
			order, err := l.FetchOne(ctx, id)
			if err != nil {
				return err
			}
			out[i] = order
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchHistory reads the approval ledger of one order
func (l *Lifecycle) FetchHistory(ctx context.Context, id string) ([]entity.ApprovalEntry, error) {
	history, err := l.catalog.History(ctx, id)
	if err != nil {
		return nil, &FetchError{ID: id, Message: port.MessageOf(err, "Failed to fetch approval history"), Err: err}
	}
	if history == nil {
		history = []entity.ApprovalEntry{}
	}
	return history, nil
}

// Cached returns the local copy of an order, if one has been fetched
func (l *Lifecycle) Cached(id string) (*entity.PurchaseOrder, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order, ok := l.cache[id]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// Decide records a reviewer's approve or reject on a pending order.
//
// The actor must hold the reviewer role and the order must still be pending
// according to the catalog; otherwise nothing is written. A decision lost to
// a concurrent reviewer surfaces as ErrConflict. On success the refreshed order is returned.
func (l *Lifecycle) Decide(ctx context.Context, orderID string, outcome entity.Status, comment string, actor session.Snapshot) (*entity.PurchaseOrder, error) {
	trigger, ok := workflow.TriggerFor(outcome)
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{{Field: "status", Rule: "oneof=approved rejected"}}}
	}

	if !actor.Authenticated() || actor.Role() != entity.RoleReviewer {
		if actor.Authenticated() {
			l.refresh(ctx, orderID)
		}
		return nil, fmt.Errorf("%w: role %q may not decide purchase orders", ErrTransitionRejected, actor.Role())
	}

	current, err := l.FetchOne(ctx, orderID)
	if err != nil {
		return nil, err
	}

	machine := workflow.NewOrderMachine(current.Status, nil)
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidState, orderID, current.Status)
	}

	draft := current.Clone()
	entry := entity.ApprovalEntry{
		Status:   machine.State(),
		Reviewer: actor.Identity(),
		Comment:  comment,
		Date:     l.now(),
	}
	if err := draft.AppendDecision(entry); err != nil {
		return nil, fmt.Errorf("%w: order %s: %v", ErrInvalidState, orderID, err)
	}

	updated, err := l.catalog.Approve(ctx, orderID, entity.Decision{Status: outcome, Comment: comment})
	if err != nil {
		return nil, l.decideFailure(ctx, orderID, err)
	}

	refreshed, err := l.FetchOne(ctx, orderID)
	if err != nil {
		l.logger.Error("Failed to refresh decided order", "order_id", orderID, "error", err)
		if updated == nil {
			updated = draft
		}
		l.remember(updated)
		refreshed = updated.Clone()
	}

	l.logger.Info("Purchase order decided", "order_id", orderID, "status", outcome, "reviewer", entry.Reviewer)
	l.publish(ctx, event.NewEvent(event.TypeOrderDecided, orderID, map[string]interface{}{
		"status":   outcome.String(),
		"reviewer": entry.Reviewer,
	}))

	return refreshed, nil
}

func (l *Lifecycle) decideFailure(ctx context.Context, orderID string, err error) error {
	msg := port.MessageOf(err, "Failed to update purchase order")

	switch {
	case errors.Is(err, port.ErrConflict):
		l.refresh(ctx, orderID)
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case errors.Is(err, port.ErrForbidden):
		l.refresh(ctx, orderID)
		return fmt.Errorf("%w: %s", ErrTransitionRejected, msg)
	default:
		l.logger.Error("Failed to persist decision", "order_id", orderID, "error", err)
		return &WriteError{Kind: ErrPersistFailed, Message: msg, Err: err}
	}
}

// refresh re-reads an order after a refused decision so the cached copy
// matches the system of record. Failures are logged only.
func (l *Lifecycle) refresh(ctx context.Context, orderID string) {
	if _, err := l.FetchOne(ctx, orderID); err != nil {
		l.logger.Error("Failed to refresh order after refused decision", "order_id", orderID, "error", err)
	}
}

func (l *Lifecycle) remember(order *entity.PurchaseOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[order.ID] = order.Clone()
}

func (l *Lifecycle) publish(ctx context.Context, evt *event.Event) {
	if l.dispatcher == nil {
		return
	}
	if err := l.dispatcher.Dispatch(ctx, evt); err != nil {
		l.logger.Error("Failed to publish order event", "event_type", evt.Type, "error", err)
	}
}
