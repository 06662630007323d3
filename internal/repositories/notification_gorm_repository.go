package repositories

import (
	"context"

	"bakery/internal/errs"
	"bakery/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMNotificationRepository is a GORM implementation of NotificationRepository.
type GORMNotificationRepository struct {
	db *gorm.DB
}

// NewGORMNotificationRepository creates a new instance of GORMNotificationRepository.
func NewGORMNotificationRepository(db *gorm.DB) *GORMNotificationRepository {
	return &GORMNotificationRepository{db: db}
}

// Create appends a notification.
func (r *GORMNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return errs.Store("failed to create notification", err)
	}
	return nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *GORMNotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Order("id").
		Find(&out).Error
	if err != nil {
		return nil, errs.Store("failed to list notifications", err)
	}
	return out, nil
}

// ListByOrder returns the notifications that reference an order, oldest first.
func (r *GORMNotificationRepository) ListByOrder(ctx context.Context, orderID string) ([]models.Notification, error) {
	var out []models.Notification
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&out).Error; err != nil {
		return nil, errs.Store("failed to list order notifications", err)
	}
	return out, nil
}
