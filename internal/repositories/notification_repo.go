package repositories

import (
	"context"

	"bakery/internal/models"
)

// NotificationRepository stores notifications. Records are append-only.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.Notification, error)
}
