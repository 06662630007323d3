package services

import (
	"context"

	"bakery/internal/errs"
	"bakery/internal/models"
	"bakery/internal/repositories"
)

// OrderView is an order as a baker sees it, with the customer's contact summary.
type OrderView struct {
	models.Order
	Customer *models.CustomerSummary `json:"customer,omitempty"`
}

// ListCustomerOrders returns the requester's orders, newest first. Orders still
// awaiting the baker's decision are not listed.
func (s *OrderService) ListCustomerOrders(ctx context.Context, req Requester) ([]models.Order, error) {
	if err := req.authenticated(); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, repositories.OrderFilter{
		CustomerID:      req.ID,
		ExcludeStatuses: []models.OrderStatus{models.StatusPending},
	})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// ListVendorOrders returns every order of the requesting baker. Orders whose
// customer no longer resolves, or that carry an item with neither a product
// reference nor a name and price, are left out.
func (s *OrderService) ListVendorOrders(ctx context.Context, req Requester) ([]OrderView, error) {
	views, err := s.vendorOrders(ctx, req, repositories.OrderFilter{BakerID: req.ID})
	if err != nil {
		return nil, err
	}
	out := make([]OrderView, 0, len(views))
	for _, v := range views {
		if v.Customer == nil || !itemsDisplayable(v.Items) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ListVendorNewOrders returns the requesting baker's pending orders.
func (s *OrderService) ListVendorNewOrders(ctx context.Context, req Requester) ([]OrderView, error) {
	return s.vendorOrders(ctx, req, repositories.OrderFilter{
		BakerID:  req.ID,
		Statuses: []models.OrderStatus{models.StatusPending},
	})
}

// ListVendorCompletedOrders returns the requesting baker's delivered and declined orders.
func (s *OrderService) ListVendorCompletedOrders(ctx context.Context, req Requester) ([]OrderView, error) {
	return s.vendorOrders(ctx, req, repositories.OrderFilter{
		BakerID:  req.ID,
		Statuses: []models.OrderStatus{models.StatusDelivered, models.StatusDeclined},
	})
}

func (s *OrderService) vendorOrders(ctx context.Context, req Requester, filter repositories.OrderFilter) ([]OrderView, error) {
	if err := req.requireBaker(); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if !seen[o.CustomerID] {
			seen[o.CustomerID] = true
			ids = append(ids, o.CustomerID)
		}
	}
	customers := make(map[string]models.CustomerSummary, len(ids))
	if len(ids) > 0 {
		users, err := s.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			customers[u.ID] = u.Summary()
		}
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := OrderView{Order: o}
		if c, ok := customers[o.CustomerID]; ok {
			v.Customer = &c
		}
		views = append(views, v)
	}
	return views, nil
}

func itemsDisplayable(items []models.OrderItem) bool {
	for _, it := range items {
		if it.ProductID != "" {
			continue
		}
		if it.Name == "" || !it.UnitPrice.IsPositive() {
			return false
		}
	}
	return true
}

// OrderDetail is a single order with both parties and the requester's own
// notifications about it, oldest first.
type OrderDetail struct {
	models.Order
	Customer      *models.CustomerSummary `json:"customer,omitempty"`
	Baker         *models.BakerSummary    `json:"baker,omitempty"`
	Notifications []models.Notification   `json:"notifications"`
}

// GetOrder returns an order to its customer or its baker. Parties whose account
// no longer resolves are left out of the detail.
func (s *OrderService) GetOrder(ctx context.Context, req Requester, id string) (*OrderDetail, error) {
	if err := req.authenticated(); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != req.ID && order.BakerID != req.ID {
		return nil, errs.Forbidden("access denied")
	}

	detail := &OrderDetail{Order: *order}
	parties, err := s.users.GetByIDs(ctx, []string{order.CustomerID, order.BakerID})
	if err != nil {
		return nil, err
	}
	for _, u := range parties {
		switch u.ID {
		case order.CustomerID:
			c := u.Summary()
			detail.Customer = &c
		case order.BakerID:
			b := u.BakerSummary()
			detail.Baker = &b
		}
	}

	detail.Notifications, err = s.dispatcher.OrderTrail(ctx, req.ID, order.ID)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// DeleteOrder removes an order and its items. Notifications about it are kept.
func (s *OrderService) DeleteOrder(ctx context.Context, req Requester, id string) error {
	if err := req.requireBaker(); err != nil {
		return err
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.deleteRequiresOwnership && order.BakerID != req.ID {
		return errs.Forbidden("access denied, you are not authorized to delete this order")
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order deleted", "order_id", id, "baker_id", req.ID)
	return nil
}
