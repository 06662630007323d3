package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bakery/internal/errs"
	"bakery/internal/metrics"
	"bakery/internal/models"
	"bakery/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Dispatch describes one notification to emit.
type Dispatch struct {
	RecipientID string
	OrderID     string
	Type        models.NotificationType
	Template    Template
	Args        TemplateArgs
}

// DispatchFailure records a notification that could not be persisted. It is
// reported next to the order mutation that triggered it instead of undoing it.
type DispatchFailure struct {
	RecipientID string                  `json:"recipient_id"`
	OrderID     string                  `json:"order_id"`
	Type        models.NotificationType `json:"type"`
	Error       string                  `json:"error"`
}

// NotificationDispatcher persists notifications with retries and announces them
// on the event broker.
type NotificationDispatcher struct {
	repo            repositories.NotificationRepository
	templates       Templates
	publisher       EventPublisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// DispatcherOption customizes a NotificationDispatcher.
type DispatcherOption func(*NotificationDispatcher)

func WithTemplates(t Templates) DispatcherOption {
	return func(d *NotificationDispatcher) { d.templates = t }
}

func WithNotificationPublisher(p EventPublisher) DispatcherOption {
	return func(d *NotificationDispatcher) { d.publisher = p }
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *NotificationDispatcher) { d.metrics = m }
}

func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *NotificationDispatcher) { d.logger = l }
}

// WithRetry sets how many times a failed write is retried and the first backoff delay.
func WithRetry(maxRetries uint64, initialInterval time.Duration) DispatcherOption {
	return func(d *NotificationDispatcher) {
		d.maxRetries = maxRetries
		d.initialInterval = initialInterval
	}
}

// NewNotificationDispatcher creates a dispatcher with English templates and three retries.
func NewNotificationDispatcher(repo repositories.NotificationRepository, opts ...DispatcherOption) *NotificationDispatcher {
	d := &NotificationDispatcher{
		repo:            repo,
		templates:       templatesEN,
		logger:          slog.Default(),
		maxRetries:      3,
		initialInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "notification_dispatcher")
	return d
}

// Notify renders and persists one notification. Store failures are retried with
// exponential backoff; the last error is returned unchanged.
func (d *NotificationDispatcher) Notify(ctx context.Context, in Dispatch) (*models.Notification, error) {
	if in.RecipientID == "" || in.OrderID == "" {
		return nil, errs.InvalidInput("notification needs a recipient and an order")
	}
	msg, err := d.templates.Render(in.Template, in.Args)
	if err != nil {
		return nil, err
	}

	n := &models.Notification{
		ID:          uuid.New().String(),
		RecipientID: in.RecipientID,
		OrderID:     in.OrderID,
		Type:        in.Type,
		Message:     msg,
	}

	attempt := 0
	write := func() error {
		attempt++
		err := d.repo.Create(ctx, n)
		if err == nil {
			return nil
		}
		if errs.Classified(err) && !errors.Is(err, errs.ErrStoreFailure) {
			return backoff.Permanent(err)
		}
		d.logger.WarnContext(ctx, "notification write failed", "attempt", attempt, "order_id", in.OrderID, "error", err)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, d.maxRetries), ctx)
	if err := backoff.Retry(write, policy); err != nil {
		d.metrics.NotificationFailed(string(in.Type))
		d.logger.ErrorContext(ctx, "notification dropped",
			"recipient_id", in.RecipientID, "order_id", in.OrderID, "type", in.Type, "error", err)
		return nil, err
	}

	d.metrics.NotificationSent(string(in.Type))
	publishEvent(ctx, d.publisher, d.logger, "notification."+string(n.Type), notificationEvent{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		OrderID:        n.OrderID,
		Type:           n.Type,
		Message:        n.Message,
		OccurredAt:     time.Now().UTC(),
	})
	return n, nil
}

// Inbox lists a user's notifications, newest first.
func (d *NotificationDispatcher) Inbox(ctx context.Context, req Requester) ([]models.Notification, error) {
	if err := req.authenticated(); err != nil {
		return nil, err
	}
	out, err := d.repo.ListByRecipient(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Notification{}
	}
	return out, nil
}

// OrderTrail lists the notifications recipientID received about orderID, oldest first.
func (d *NotificationDispatcher) OrderTrail(ctx context.Context, recipientID, orderID string) ([]models.Notification, error) {
	all, err := d.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func failureOf(in Dispatch, err error) DispatchFailure {
	return DispatchFailure{
		RecipientID: in.RecipientID,
		OrderID:     in.OrderID,
		Type:        in.Type,
		Error:       err.Error(),
	}
}
