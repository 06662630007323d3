package repositories

import (
	"context"
	"errors"
	"time"

	"bakery/internal/errs"
	"bakery/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order together with its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Wrap(errs.ErrConflict, err, "order %s already exists", order.OrderNumber)
		}
		return errs.Store("failed to create order", err)
	}
	return nil
}

// GetByID loads an order and its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("order", id)
		}
		return nil, errs.Store("failed to get order", err)
	}
	return &order, nil
}

// List retrieves orders matching filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.BakerID != "" {
		q = q.Where("baker_id = ?", filter.BakerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if len(filter.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", filter.ExcludeStatuses)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Order("id").Find(&orders).Error; err != nil {
		return nil, errs.Store("failed to list orders", err)
	}
	return orders, nil
}

// UpdateStatus writes status and rejection reason guarded by the version column.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, order *models.Order, expectedVersion int) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(map[string]any{
			"status":           order.Status,
			"rejection_reason": order.RejectionReason,
			"version":          expectedVersion + 1,
			"updated_at":       now,
		})
	if res.Error != nil {
		return errs.Store("failed to update order status", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
			return errs.Store("failed to check order", err)
		}
		if count == 0 {
			return errs.NotFound("order", order.ID)
		}
		return errs.New(errs.ErrConflict, "order %s was modified concurrently", order.ID)
	}
	order.Version = expectedVersion + 1
	order.UpdatedAt = now
	return nil
}

// Delete removes the order and its items.
func (r *GORMOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return errs.Store("failed to delete order", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("order", id)
		}
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return errs.Store("failed to delete order items", err)
		}
		return nil
	})
}

// CountOpenByBaker counts undelivered, undeclined orders per baker.
func (r *GORMOrderRepository) CountOpenByBaker(ctx context.Context, bakerIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(bakerIDs))
	if len(bakerIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		BakerID string
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("baker_id, COUNT(*) AS total").
		Where("baker_id IN ?", bakerIDs).
		Where("status NOT IN ?", []models.OrderStatus{models.StatusDelivered, models.StatusDeclined}).
		Group("baker_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errs.Store("failed to count open orders", err)
	}
	for _, row := range rows {
		counts[row.BakerID] = row.Total
	}
	return counts, nil
}
