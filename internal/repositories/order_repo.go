package repositories

import (
	"context"

	"bakery/internal/models"
)

// OrderFilter narrows List. Zero fields do not filter.
type OrderFilter struct {
	CustomerID      string
	BakerID         string
	Statuses        []models.OrderStatus
	ExcludeStatuses []models.OrderStatus
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// UpdateStatus persists order.Status and order.RejectionReason if the stored
	// version still equals expectedVersion, then bumps order.Version.
	UpdateStatus(ctx context.Context, order *models.Order, expectedVersion int) error
	Delete(ctx context.Context, id string) error
	// CountOpenByBaker counts orders that are not delivered or declined, per baker.
	CountOpenByBaker(ctx context.Context, bakerIDs []string) (map[string]int64, error)
}
