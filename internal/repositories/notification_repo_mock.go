package repositories

import (
	"context"
	"sync"
	"time"

	"bakery/internal/models"

	"github.com/google/uuid"
)

// MockNotificationRepository is an in-memory implementation of NotificationRepository.
type MockNotificationRepository struct {
	notifications []models.Notification
	mu            sync.RWMutex
}

// NewMockNotificationRepository creates a new instance of MockNotificationRepository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

// Create appends a notification.
func (r *MockNotificationRepository) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, *n)
	return nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *MockNotificationRepository) ListByRecipient(_ context.Context, recipientID string) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].RecipientID == recipientID {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

// ListByOrder returns the notifications of an order, oldest first.
func (r *MockNotificationRepository) ListByOrder(_ context.Context, orderID string) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Notification
	for _, n := range r.notifications {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

// All returns every stored notification in creation order.
func (r *MockNotificationRepository) All() []models.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}
