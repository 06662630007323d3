package models

import "time"

// NotificationType tags the lifecycle event a notification reports.
type NotificationType string

const (
	NotificationOrderPlaced    NotificationType = "order_placed"
	NotificationOrderAccepted  NotificationType = "order_accepted"
	NotificationOrderRejected  NotificationType = "order_rejected"
	NotificationOrderPreparing NotificationType = "order_preparing"
	NotificationOrderCompleted NotificationType = "order_completed"
	NotificationOrderShipped   NotificationType = "order_shipped"
)

// Notification is an immutable event record addressed to one user.
type Notification struct {
	ID          string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecipientID string           `json:"recipient_id" gorm:"index;type:varchar(36);not null"`
	OrderID     string           `json:"order_id" gorm:"index;type:varchar(36)"`
	Type        NotificationType `json:"type" gorm:"type:varchar(32);not null"`
	Message     string           `json:"message" gorm:"type:text;not null"`
	CreatedAt   time.Time        `json:"created_at"`
}
