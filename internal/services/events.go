package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"bakery/internal/models"

	"github.com/shopspring/decimal"
)

// EventPublisher delivers domain events to a broker. Publishing is best-effort:
// failures are logged and never fail the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Routing keys of order events.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type orderEvent struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	OrderType   models.OrderType   `json:"order_type"`
	CustomerID  string             `json:"customer_id"`
	BakerID     string             `json:"baker_id"`
	Status      models.OrderStatus `json:"status"`
	Previous    models.OrderStatus `json:"previous_status,omitempty"`
	TotalPrice  decimal.Decimal    `json:"total_price"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func newOrderEvent(o *models.Order, previous models.OrderStatus) orderEvent {
	return orderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		OrderType:   o.OrderType,
		CustomerID:  o.CustomerID,
		BakerID:     o.BakerID,
		Status:      o.Status,
		Previous:    previous,
		TotalPrice:  o.TotalPrice,
		OccurredAt:  time.Now().UTC(),
	}
}

type notificationEvent struct {
	NotificationID string                  `json:"notification_id"`
	RecipientID    string                  `json:"recipient_id"`
	OrderID        string                  `json:"order_id"`
	Type           models.NotificationType `json:"type"`
	Message        string                  `json:"message"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

func publishEvent(ctx context.Context, p EventPublisher, logger *slog.Logger, routingKey string, payload any) {
	if p == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorContext(ctx, "failed to marshal event", "routing_key", routingKey, "error", err)
		return
	}
	if err := p.Publish(ctx, routingKey, body); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "routing_key", routingKey, "error", err)
	}
}
