package repositories

import (
	"context"
	"slices"
	"sync"
	"time"

	"bakery/internal/errs"
	"bakery/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	seq    []string // insertion order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	if o.RejectionReason != nil {
		reason := *o.RejectionReason
		o.RejectionReason = &reason
	}
	return o
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, ok := r.orders[order.ID]; ok {
		return errs.New(errs.ErrConflict, "order %s already exists", order.ID)
	}
	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return errs.New(errs.ErrConflict, "order %s already exists", order.OrderNumber)
		}
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	r.seq = append(r.seq, order.ID)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errs.NotFound("order", id)
	}
	order = cloneOrder(order)
	return &order, nil
}

// List returns orders matching filter, newest first.
func (r *MockOrderRepository) List(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Order, 0)
	for i := len(r.seq) - 1; i >= 0; i-- {
		order, ok := r.orders[r.seq[i]]
		if !ok || !matches(order, filter) {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	return out, nil
}

func matches(o models.Order, f OrderFilter) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.BakerID != "" && o.BakerID != f.BakerID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
		return false
	}
	if slices.Contains(f.ExcludeStatuses, o.Status) {
		return false
	}
	return true
}

// UpdateStatus updates the status of an order if its version matches.
func (r *MockOrderRepository) UpdateStatus(_ context.Context, order *models.Order, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return errs.NotFound("order", order.ID)
	}
	if stored.Version != expectedVersion {
		return errs.New(errs.ErrConflict, "order %s was modified concurrently", order.ID)
	}
	stored.Status = order.Status
	stored.RejectionReason = order.RejectionReason
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now()
	r.orders[order.ID] = cloneOrder(stored)

	order.Version = stored.Version
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes an order.
func (r *MockOrderRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return errs.NotFound("order", id)
	}
	delete(r.orders, id)
	r.seq = slices.DeleteFunc(r.seq, func(s string) bool { return s == id })
	return nil
}

// CountOpenByBaker counts orders that are still in progress per baker.
func (r *MockOrderRepository) CountOpenByBaker(_ context.Context, bakerIDs []string) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64, len(bakerIDs))
	for _, o := range r.orders {
		if o.Status.Terminal() || !slices.Contains(bakerIDs, o.BakerID) {
			continue
		}
		counts[o.BakerID]++
	}
	return counts, nil
}
