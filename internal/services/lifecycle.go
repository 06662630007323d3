package services

import (
	"context"

	"bakery/internal/errs"
	"bakery/internal/models"
)

// StatusUpdate asks to move an order to Status. Reason is kept only when the
// order is declined. A non-zero ExpectedVersion makes the update conditional on
// the client having seen that version.
type StatusUpdate struct {
	OrderID         string
	Status          models.OrderStatus
	Reason          string
	ExpectedVersion int
}

// StatusUpdateResult carries the updated order and the customer notification,
// if the new status has one. DispatchFailure is set when that notification could
// not be stored; the status change is kept either way.
type StatusUpdateResult struct {
	Order           *models.Order        `json:"order"`
	Notification    *models.Notification `json:"notification,omitempty"`
	DispatchFailure *DispatchFailure     `json:"dispatch_failure,omitempty"`
}

var statusNotifications = map[models.OrderStatus]struct {
	kind     models.NotificationType
	template Template
}{
	models.StatusAccepted:  {models.NotificationOrderAccepted, TemplateOrderAccepted},
	models.StatusDeclined:  {models.NotificationOrderRejected, TemplateOrderRejected},
	models.StatusPreparing: {models.NotificationOrderPreparing, TemplateOrderPreparing},
	models.StatusDelivered: {models.NotificationOrderCompleted, TemplateOrderCompleted},
	models.StatusShipped:   {models.NotificationOrderShipped, TemplateOrderShipped},
}

// SetStatus applies a baker's status change to one of their orders and notifies
// the customer.
func (s *OrderService) SetStatus(ctx context.Context, req Requester, in StatusUpdate) (*StatusUpdateResult, error) {
	if err := req.authenticated(); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, errs.InvalidInput("invalid order status %q", in.Status)
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BakerID != req.ID {
		return nil, errs.Forbidden("access denied, you are not authorized to update this order")
	}
	if in.ExpectedVersion != 0 && in.ExpectedVersion != order.Version {
		return nil, errs.New(errs.ErrConflict,
			"order %s was modified concurrently (version %d, expected %d)", order.ID, order.Version, in.ExpectedVersion)
	}
	if !s.transitions.Allows(order.Status, in.Status) {
		return nil, errs.InvalidInput("cannot change order status from %s to %s", order.Status, in.Status)
	}

	previous := order.Status
	order.Status = in.Status
	if in.Status == models.StatusDeclined {
		reason := in.Reason
		order.RejectionReason = &reason
	}
	if err := s.orders.UpdateStatus(ctx, order, order.Version); err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(string(order.Status))
	s.logger.InfoContext(ctx, "order status changed",
		"order_id", order.ID, "from", previous, "to", order.Status, "version", order.Version)

	result := &StatusUpdateResult{Order: order}
	if note, ok := statusNotifications[order.Status]; ok {
		d := Dispatch{
			RecipientID: order.CustomerID,
			OrderID:     order.ID,
			Type:        note.kind,
			Template:    note.template,
			Args:        TemplateArgs{OrderNumber: order.OrderNumber, Reason: in.Reason},
		}
		n, err := s.dispatcher.Notify(ctx, d)
		if err != nil {
			failure := failureOf(d, err)
			result.DispatchFailure = &failure
		} else {
			result.Notification = n
		}
	}

	publishEvent(ctx, s.publisher, s.logger, EventOrderStatusChanged, newOrderEvent(order, previous))
	return result, nil
}
