package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"bakery/internal/errs"
	"bakery/internal/models"
	"bakery/internal/repositories"
)

// VendorRouter picks the baker that receives a custom order.
// It fails with errs.ErrNoVendorAvailable when there is no candidate.
type VendorRouter interface {
	SelectVendor(ctx context.Context) (string, error)
}

func noVendorAvailable() error {
	return errs.New(errs.ErrNoVendorAvailable, "no bakers available to handle custom orders")
}

func listBakers(ctx context.Context, users repositories.UserRepository) ([]models.User, error) {
	bakers, err := users.ListByRole(ctx, models.RoleBaker)
	if err != nil {
		return nil, err
	}
	if len(bakers) == 0 {
		return nil, noVendorAvailable()
	}
	return bakers, nil
}

// FirstAvailableRouter always picks the earliest registered baker.
type FirstAvailableRouter struct {
	users repositories.UserRepository
}

func NewFirstAvailableRouter(users repositories.UserRepository) *FirstAvailableRouter {
	return &FirstAvailableRouter{users: users}
}

func (r *FirstAvailableRouter) SelectVendor(ctx context.Context) (string, error) {
	bakers, err := listBakers(ctx, r.users)
	if err != nil {
		return "", err
	}
	return bakers[0].ID, nil
}

// RoundRobinRouter cycles through bakers in registration order.
type RoundRobinRouter struct {
	users repositories.UserRepository
	next  atomic.Uint64
}

func NewRoundRobinRouter(users repositories.UserRepository) *RoundRobinRouter {
	return &RoundRobinRouter{users: users}
}

func (r *RoundRobinRouter) SelectVendor(ctx context.Context) (string, error) {
	bakers, err := listBakers(ctx, r.users)
	if err != nil {
		return "", err
	}
	n := r.next.Add(1) - 1
	return bakers[n%uint64(len(bakers))].ID, nil
}

// LeastLoadedRouter picks the baker with the fewest open orders; ties go to the
// earliest registered baker.
type LeastLoadedRouter struct {
	users  repositories.UserRepository
	orders repositories.OrderRepository
}

func NewLeastLoadedRouter(users repositories.UserRepository, orders repositories.OrderRepository) *LeastLoadedRouter {
	return &LeastLoadedRouter{users: users, orders: orders}
}

func (r *LeastLoadedRouter) SelectVendor(ctx context.Context) (string, error) {
	bakers, err := listBakers(ctx, r.users)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(bakers))
	for i, b := range bakers {
		ids[i] = b.ID
	}
	load, err := r.orders.CountOpenByBaker(ctx, ids)
	if err != nil {
		return "", err
	}

	best := ids[0]
	for _, id := range ids[1:] {
		if load[id] < load[best] {
			best = id
		}
	}
	return best, nil
}

// NewVendorRouter builds the router named by policy: first, round_robin or least_loaded.
func NewVendorRouter(policy string, users repositories.UserRepository, orders repositories.OrderRepository) (VendorRouter, error) {
	switch policy {
	case "", "first":
		return NewFirstAvailableRouter(users), nil
	case "round_robin":
		return NewRoundRobinRouter(users), nil
	case "least_loaded":
		return NewLeastLoadedRouter(users, orders), nil
	default:
		return nil, fmt.Errorf("unknown routing policy %q", policy)
	}
}
